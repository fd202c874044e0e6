// SPDX-License-Identifier: MIT

package licenses

import "strings"

// Verdict is the outcome of checking a license against a policy.
type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictDenied
	VerdictUnlisted
)

// String returns a short identifier for logs and findings.
func (v Verdict) String() string {
	switch v {
	case VerdictDenied:
		return "denied"
	case VerdictUnlisted:
		return "unlisted"
	}
	return "allowed"
}

// Policy restricts which SPDX licenses a manifest may reference.
// An empty allow list permits everything not explicitly denied.
type Policy struct {
	Allow []string `yaml:"allow" json:"allow,omitempty"`
	Deny  []string `yaml:"deny" json:"deny,omitempty"`
}

// Evaluate checks one SPDX identifier against the policy. Deny entries
// win over allow entries.
func (p Policy) Evaluate(spdx string) Verdict {
	for _, d := range p.Deny {
		if strings.EqualFold(d, spdx) {
			return VerdictDenied
		}
	}
	if len(p.Allow) == 0 {
		return VerdictAllowed
	}
	for _, a := range p.Allow {
		if strings.EqualFold(a, spdx) {
			return VerdictAllowed
		}
	}
	return VerdictUnlisted
}

// Empty reports whether the policy constrains nothing.
func (p Policy) Empty() bool {
	return len(p.Allow) == 0 && len(p.Deny) == 0
}
