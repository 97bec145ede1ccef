// Package identity derives the stable identity of a finding, used to find the
// tracking issue filed for it on earlier runs, and the labels applied to it.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xkilldash9x/nsreconcile/api/schemas"
	"github.com/xkilldash9x/nsreconcile/internal/rawdoc"
	"github.com/xkilldash9x/nsreconcile/internal/validation"
)

// Key block keys.
const (
	KeyPackage  = "package"
	KeyPlatform = "platform"
	KeyV1       = "v1-key"
)

// KeyBlockKeys lists every key a key block may carry.
var KeyBlockKeys = []string{KeyPackage, KeyPlatform, KeyV1}

const keySeparator = "|"

// V1Key names the one application that keeps the legacy identity format.
type V1Key struct {
	Platform string `yaml:"platform"`
	Package  string `yaml:"package"`
}

// KeyPolicy controls which assessment fields feed a finding's identity.
type KeyPolicy struct {
	IncludePlatform bool   `yaml:"platform"`
	IncludePackage  bool   `yaml:"package"`
	V1Override      *V1Key `yaml:"v1-key,omitempty"`
}

// DefaultKeyPolicy includes both the platform and the package.
func DefaultKeyPolicy() KeyPolicy {
	return KeyPolicy{IncludePlatform: true, IncludePackage: true}
}

// FindingKey returns the hex SHA-256 identity of finding within assessment.
//
// When the policy's v1 override names exactly this assessment's platform and
// package, only the finding key is hashed. Otherwise the finding key is
// joined with the platform and package, as the policy selects, by "|".
func FindingKey(assessment schemas.Assessment, finding schemas.Finding, policy KeyPolicy) string {
	if v1 := policy.V1Override; v1 != nil &&
		assessment.PackageKey == v1.Package && assessment.PlatformType == v1.Platform {
		return digest(finding.Key)
	}

	parts := []string{finding.Key}
	if policy.IncludePlatform {
		parts = append(parts, assessment.PlatformType)
	}
	if policy.IncludePackage {
		parts = append(parts, assessment.PackageKey)
	}
	return digest(strings.Join(parts, keySeparator))
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ParseKeyPolicy reads a key block. Fields that are absent keep their
// default. Callers check the block's keys against KeyBlockKeys first.
func ParseKeyPolicy(obj *rawdoc.Object) (KeyPolicy, error) {
	policy := DefaultKeyPolicy()

	if v, ok := obj.Get(KeyV1); ok {
		s, err := v.String(KeyV1)
		if err != nil {
			return KeyPolicy{}, err
		}
		parts := strings.Fields(s)
		if len(parts) != 2 {
			return KeyPolicy{}, validation.Valuef(v.Path(), v.Line(), "v1-key must be of the form <platform> <packageName>")
		}
		if parts[0] != schemas.PlatformAndroid && parts[0] != schemas.PlatformIOS {
			return KeyPolicy{}, validation.Valuef(v.Path(), v.Line(), "v1-key: %q is not a valid platform type", parts[0])
		}
		policy.V1Override = &V1Key{Platform: parts[0], Package: parts[1]}
	}

	if v, ok := obj.Get(KeyPackage); ok {
		b, err := v.Bool(KeyPackage)
		if err != nil {
			return KeyPolicy{}, err
		}
		policy.IncludePackage = b
	}

	if v, ok := obj.Get(KeyPlatform); ok {
		b, err := v.Bool(KeyPlatform)
		if err != nil {
			return KeyPolicy{}, err
		}
		policy.IncludePlatform = b
	}

	return policy, nil
}
