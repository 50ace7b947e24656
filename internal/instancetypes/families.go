package instancetypes

import "strings"

// FamilyRule holds the per-family corrections applied to figures read from
// the document.
type FamilyRule struct {
	// CoreFactor multiplies the stated core count. Families whose document
	// lists physical cores use 2 to report hyperthreaded virtual cores.
	CoreFactor int `mapstructure:"coreFactor" json:"core_factor" yaml:"coreFactor"`
	// DriveCount multiplies a per-drive storage figure.
	DriveCount int `mapstructure:"driveCount" json:"drive_count" yaml:"driveCount"`
}

// DefaultFamilyRules returns the corrections for the families that need them.
// Any family not listed uses factor 1 for both.
func DefaultFamilyRules() map[string]FamilyRule {
	return map[string]FamilyRule{
		"cc": {CoreFactor: 2},
		"cg": {CoreFactor: 2},
		"hi": {CoreFactor: 2},
		"hs": {CoreFactor: 2, DriveCount: 24},
	}
}

func (r FamilyRule) coreFactor() int {
	if r.CoreFactor <= 0 {
		return 1
	}
	return r.CoreFactor
}

func (r FamilyRule) driveCount() int {
	if r.DriveCount <= 0 {
		return 1
	}
	return r.DriveCount
}

// familyOf returns the leading letters of an API name: "cc" for "cc2.8xlarge".
func familyOf(apiName string) string {
	for i, r := range apiName {
		if r < 'a' || r > 'z' {
			return apiName[:i]
		}
	}
	return apiName
}

func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}
