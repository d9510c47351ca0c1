package core

import "strings"

// EmailPolicy gates the optional email-capture transition. The syntax
// check is deliberately loose: exactly one "@" separating a non-empty
// local part and a dotted domain. The deny list catches known
// mail-provider misspellings by substring, advisory only.
type EmailPolicy struct {
	denyList []string
}

func NewEmailPolicy(denyList []string) *EmailPolicy {
	cleaned := make([]string, 0, len(denyList))
	for _, entry := range denyList {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			cleaned = append(cleaned, entry)
		}
	}
	return &EmailPolicy{denyList: cleaned}
}

// Check returns ORDER_VALIDATION_FAILED when the address is malformed
// or its domain matches a deny-list fragment.
func (p *EmailPolicy) Check(address string) error {
	address = strings.TrimSpace(address)
	local, domain, ok := splitAddress(address)
	if !ok || local == "" || !strings.Contains(domain, ".") {
		return orderValidationFailed("email", "address must look like name@domain.tld")
	}
	if p != nil {
		lowered := strings.ToLower(domain)
		for _, entry := range p.denyList {
			if strings.Contains(lowered, entry) {
				return orderValidationFailed("email", "address domain looks misspelled: "+domain)
			}
		}
	}
	return nil
}

// Valid reports whether the address passes the policy.
func (p *EmailPolicy) Valid(address string) bool {
	return p.Check(address) == nil
}

func splitAddress(address string) (local, domain string, ok bool) {
	if strings.Count(address, "@") != 1 {
		return "", "", false
	}
	at := strings.Index(address, "@")
	return address[:at], address[at+1:], address[at+1:] != ""
}
