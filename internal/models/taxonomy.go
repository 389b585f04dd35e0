package models

import (
	"fmt"
	"strings"
)

// SourceTier ranks the authority of a source.
type SourceTier string

// Source tiers.
const (
	TierGovernment SourceTier = "government"
	TierMedia      SourceTier = "media"
)

// Rank orders tiers; higher ranks win dedup ties.
func (t SourceTier) Rank() int {
	switch t {
	case TierGovernment:
		return 2
	case TierMedia:
		return 1
	}

	return 0
}

// Valid reports whether t is a known tier.
func (t SourceTier) Valid() bool {
	return t.Rank() > 0
}

// Severity is the discrete severity tier of an article.
type Severity string

// Severity tiers, lowest first.
const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Level maps a severity onto an ordinal so tiers can be compared.
func (s Severity) Level() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}

	return 0
}

// AtLeast reports whether s is at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Level() >= other.Level()
}

// ParseSeverity converts a config string into a Severity.
func ParseSeverity(v string) (Severity, error) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(v))); s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh:
		return s, nil
	}

	return SeverityNone, fmt.Errorf("unknown severity %q", v)
}

// AttackType is a category of attack mentioned in an article.
type AttackType string

// Attack types recognised by the default dictionary.
const (
	AttackPhishing          AttackType = "Phishing"
	AttackRansomware        AttackType = "Ransomware"
	AttackMalware           AttackType = "Malware"
	AttackDataBreach        AttackType = "Data Breach"
	AttackDDoS              AttackType = "DDoS"
	AttackSocialEngineering AttackType = "Social Engineering"
	AttackIdentityTheft     AttackType = "Identity Theft"
	AttackZeroDay           AttackType = "Zero-day"
	AttackSupplyChain       AttackType = "Supply Chain"
	AttackIoT               AttackType = "IoT Attacks"
)

// Sector is an industry sector mentioned in an article.
type Sector string

// Sectors recognised by the default dictionary.
const (
	SectorFinance        Sector = "Finance & Banking"
	SectorHealthcare     Sector = "Healthcare"
	SectorGovernment     Sector = "Government"
	SectorEducation      Sector = "Education"
	SectorTechnology     Sector = "Technology"
	SectorRetail         Sector = "Retail"
	SectorManufacturing  Sector = "Manufacturing"
	SectorEnergy         Sector = "Energy"
	SectorTelecom        Sector = "Telecommunications"
	SectorTransportation Sector = "Transportation"
)
