package classifier

import (
	"cybernews/internal/config"
	"cybernews/internal/models"
)

// Severity weights per keyword tier.
const (
	WeightHigh   = 3
	WeightMedium = 2
	WeightLow    = 1
)

// Dictionary holds the static term lists the classifier matches against.
// Terms are phrases; they are compared in search form, so case and
// punctuation do not matter.
type Dictionary struct {
	AttackTypes  map[models.AttackType][]string
	Sectors      map[models.Sector][]string
	High         []string
	Medium       []string
	Low          []string
	Relevance    []string
	ThreatActors []string
}

// AttackTypeOrder is the order attack types are reported in.
var AttackTypeOrder = []models.AttackType{
	models.AttackPhishing,
	models.AttackRansomware,
	models.AttackMalware,
	models.AttackDataBreach,
	models.AttackDDoS,
	models.AttackSocialEngineering,
	models.AttackIdentityTheft,
	models.AttackZeroDay,
	models.AttackSupplyChain,
	models.AttackIoT,
}

// SectorOrder is the order sectors are reported in.
var SectorOrder = []models.Sector{
	models.SectorFinance,
	models.SectorHealthcare,
	models.SectorGovernment,
	models.SectorEducation,
	models.SectorTechnology,
	models.SectorRetail,
	models.SectorManufacturing,
	models.SectorEnergy,
	models.SectorTelecom,
	models.SectorTransportation,
}

// DefaultDictionary returns the built-in term lists.
func DefaultDictionary() Dictionary {
	return Dictionary{
		High: []string{
			"critical", "urgent", "emergency", "severe", "zero-day",
			"ransomware", "remote code execution", "data breach", "national security",
		},
		Medium: []string{
			"vulnerability", "vulnerabilities", "exploit", "exploited", "breach",
			"attack", "attacks", "compromise", "compromised", "warning", "malware",
			"backdoor", "data leak", "hack", "hacked", "phishing", "phishing campaign",
		},
		Low: []string{
			"alert", "security update", "patch", "advisory", "update available",
			"security issue", "cybersecurity", "threat",
		},
		AttackTypes: map[models.AttackType][]string{
			models.AttackPhishing: {
				"phishing", "spear phishing", "phish", "email scam", "fake email",
				"credential harvesting", "spoofed", "impersonation",
			},
			models.AttackRansomware: {
				"ransomware", "ransom", "encrypted files", "file encryption",
				"decrypt", "decryptor", "pay ransom",
			},
			models.AttackMalware: {
				"malware", "virus", "trojan", "spyware", "adware", "worm",
				"botnet", "backdoor", "rootkit", "keylogger",
			},
			models.AttackDataBreach: {
				"data breach", "breach", "leaked data", "exposed data", "data leak",
				"data exposed", "database exposed", "stolen data",
			},
			models.AttackDDoS: {
				"ddos", "denial of service", "distributed denial", "service disruption",
				"botnet attack", "traffic flood",
			},
			models.AttackSocialEngineering: {
				"social engineering", "pretexting", "baiting", "quid pro quo",
				"scam call", "scam message", "vishing",
			},
			models.AttackIdentityTheft: {
				"identity theft", "identity fraud", "stolen identity",
				"credential theft", "account takeover",
			},
			models.AttackZeroDay: {
				"zero-day", "0-day", "unpatched vulnerability",
				"unknown vulnerability", "undisclosed vulnerability",
			},
			models.AttackSupplyChain: {
				"supply chain", "vendor compromise", "third-party breach",
				"software supply chain", "trusted supplier",
			},
			models.AttackIoT: {
				"iot attack", "smart device", "connected device", "device hijack",
				"iot vulnerability",
			},
		},
		Sectors: map[models.Sector][]string{
			models.SectorFinance:    {"bank", "banking", "financial", "finance", "credit", "insurance", "payment"},
			models.SectorHealthcare: {"healthcare", "hospital", "medical", "health", "patient", "doctor"},
			models.SectorGovernment: {
				"government", "federal", "ministry", "municipal", "public sector", "agency",
			},
			models.SectorEducation: {"education", "university", "school", "college", "student", "academic"},
			models.SectorTechnology: {
				"tech", "technology", "software", "hardware", "information technology", "computing",
			},
			models.SectorRetail:        {"retail", "e-commerce", "store", "shopping", "merchant", "consumer"},
			models.SectorManufacturing: {"manufacturing", "factory", "industry", "production", "industrial"},
			models.SectorEnergy:        {"energy", "utility", "power", "electricity", "oil", "gas"},
			models.SectorTelecom: {
				"telecom", "telecommunications", "isp", "internet provider", "mobile",
			},
			models.SectorTransportation: {"transport", "logistics", "airline", "aviation", "shipping", "railway"},
		},
		Relevance: []string{
			"cyber", "hack", "breach", "malware", "ransomware", "phishing",
			"vulnerability", "vulnerabilities", "exploit", "attack", "security",
			"threat", "virus", "trojan", "botnet", "ddos", "encryption", "firewall",
			"authentication", "password", "privacy", "data leak", "identity theft",
			"zero-day", "penetration test", "intrusion", "backdoor", "spyware", "worm",
			"cybercrime", "cybercriminal", "infosec", "cryptography",
			"cert-in", "nciipc", "i4c",
		},
		ThreatActors: []string{
			"Lazarus Group", "Fancy Bear", "Cozy Bear", "Equation Group", "DarkSide",
			"REvil", "Conti", "LockBit", "Maze", "Ryuk", "Cl0p", "Hafnium", "Nobelium",
			"Kimsuky", "FIN7", "Carbanak", "DarkHotel", "Dragonfly", "Energetic Bear",
			"Sandworm", "Turla", "APT29", "APT28", "APT40", "APT10", "APT32", "APT38",
			"SideWinder",
		},
	}
}

// DictionaryFromConfig returns the default dictionary with any severity term
// lists from cfg replacing the built-in ones.
func DictionaryFromConfig(cfg config.ClassificationConfig) Dictionary {
	d := DefaultDictionary()

	if len(cfg.HighTerms) > 0 {
		d.High = cfg.HighTerms
	}

	if len(cfg.MediumTerms) > 0 {
		d.Medium = cfg.MediumTerms
	}

	if len(cfg.LowTerms) > 0 {
		d.Low = cfg.LowTerms
	}

	return d
}
