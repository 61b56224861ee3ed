package utils

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/badoux/checkmail"
	"github.com/likexian/whois"
)

// ContactVerification is the result of a deliverability check on a
// debtor contact's email: outreach should not be enabled for
// addresses that will bounce.
type ContactVerification struct {
	Email        string `json:"email"`
	Status       string `json:"status"` // valid, invalid, disposable, unknown
	Details      string `json:"details"`
	IsBounceRisk bool   `json:"is_bounce_risk"`
	WHOIS        string `json:"whois,omitempty"`
}

var (
	disposableDomains = map[string]bool{
		"mailinator.com":    true,
		"tempmail.org":      true,
		"10minutemail.com":  true,
		"guerrillamail.com": true,
		"trashmail.com":     true,
		"yopmail.com":       true,
		"maildrop.cc":       true,
		"dispostable.com":   true,
		"fakeinbox.com":     true,
		"sharklasers.com":   true,
	}

	// Domain to MX cache
	mxCache = struct {
		sync.RWMutex
		m map[string][]*net.MX
	}{m: make(map[string][]*net.MX)}
)

// VerifyContactEmail checks a contact address before outreach is
// enabled: syntax, disposable domain, DNS host, and MX records, plus
// WHOIS data for the reviewer.
func VerifyContactEmail(email string) (*ContactVerification, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	result := &ContactVerification{
		Email:        email,
		Status:       "unknown",
		IsBounceRisk: true,
	}

	if err := checkmail.ValidateFormat(email); err != nil {
		result.Status = "invalid"
		result.Details = "Invalid email format: " + err.Error()
		return result, nil
	}

	domain := ExtractDomain(email)
	if domain == "" {
		result.Status = "invalid"
		result.Details = "Invalid email format"
		return result, nil
	}

	if disposableDomains[domain] {
		result.Status = "disposable"
		result.Details = "Disposable email domain"
		return result, nil
	}

	if err := checkmail.ValidateHost(email); err != nil {
		if _, ok := err.(checkmail.SmtpError); !ok {
			result.Status = "invalid"
			result.Details = "Domain validation failed: " + err.Error()
			return result, nil
		}
		// SMTP-level refusal still proves the domain resolves; keep going.
	}

	mxRecords, err := getMXRecords(domain)
	if err != nil || len(mxRecords) == 0 {
		result.Status = "invalid"
		result.Details = "Domain has no MX records"
		return result, nil
	}

	result.Status = "valid"
	result.Details = "Domain accepts mail"
	result.IsBounceRisk = false

	if whoisInfo, err := whois.Whois(domain); err == nil {
		result.WHOIS = whoisInfo
	}

	return result, nil
}

// ExtractDomain extracts domain from email address
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		return parts[1]
	}
	return ""
}

func getMXRecords(domain string) ([]*net.MX, error) {
	mxCache.RLock()
	if records, ok := mxCache.m[domain]; ok {
		mxCache.RUnlock()
		return records, nil
	}
	mxCache.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var resolver net.Resolver
	mxRecords, err := resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}

	mxCache.Lock()
	mxCache.m[domain] = mxRecords
	mxCache.Unlock()

	return mxRecords, nil
}
