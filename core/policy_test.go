package core

import "testing"

func TestEmailPolicy_SyntaxAndTypoChecks(t *testing.T) {
	policy := NewEmailPolicy(DefaultConfig().EmailDenyList)

	cases := []struct {
		name    string
		address string
		valid   bool
	}{
		{"plain address", "foo@gmail.com", true},
		{"subdomain", "foo@mail.example.co.in", true},
		{"surrounding whitespace", "  foo@gmail.com  ", true},
		{"missing at", "foo.gmail.com", false},
		{"two ats", "foo@bar@gmail.com", false},
		{"empty local part", "@gmail.com", false},
		{"empty domain", "foo@", false},
		{"undotted domain", "foo@gmail", false},
		{"gmail typo", "foo@gmial.com", false},
		{"hotmail typo", "foo@hotmial.com", false},
		{"typo as subdomain still matches", "foo@mail.gmial.com.example.org", false},
		{"case-insensitive typo", "foo@GMIAL.COM", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Check(tc.address)
			if tc.valid && err != nil {
				t.Fatalf("expected %q to pass, got %v", tc.address, err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatalf("expected %q to fail", tc.address)
				}
				if !IsValidationFailed(err) {
					t.Fatalf("expected validation-failed envelope, got %v", err)
				}
			}
		})
	}
}

func TestEmailPolicy_EmptyDenyListOnlyChecksSyntax(t *testing.T) {
	policy := NewEmailPolicy(nil)
	if err := policy.Check("foo@gmial.com"); err != nil {
		t.Fatalf("without a deny list the typo should pass syntax: %v", err)
	}
	if policy.Valid("not-an-email") {
		t.Fatalf("syntax check must still apply")
	}
}
