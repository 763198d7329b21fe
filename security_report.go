package sessiongate

import "time"

type SecurityReport struct {
	ProductionMode      bool
	StoreBackend        string
	RateLimitBackend    string
	TokenLifetime       time.Duration
	EvictionGrace       time.Duration
	RejectMalformed     bool
	GeneralLimit        WindowReport
	IssuanceLimit       WindowReport
	CookieEnabled       bool
	CookieSigning       string
	CookieSecure        bool
	TrustProxyHeaders   bool
	AuditEnabled        bool
	MetricsEnabled      bool
	IssuanceUnthrottled bool
}

type WindowReport struct {
	Active bool
	Limit  int
	Period time.Duration
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		ProductionMode:    e.config.Security.ProductionMode,
		StoreBackend:      e.config.Store.Backend,
		RateLimitBackend:  e.config.rateLimitBackend(),
		TokenLifetime:     e.config.Token.Lifetime,
		EvictionGrace:     e.config.Store.EvictionGrace,
		RejectMalformed:   e.config.Token.RejectMalformed,
		GeneralLimit:      windowReport(e.config.RateLimit.General),
		IssuanceLimit:     windowReport(e.config.RateLimit.Issuance),
		CookieEnabled:     e.config.Cookie.Enabled,
		TrustProxyHeaders: e.config.Security.TrustProxyHeaders,
		AuditEnabled:      e.config.Audit.Enabled,
		MetricsEnabled:    e.config.Metrics.Enabled,
	}
	if report.CookieEnabled {
		report.CookieSigning = e.config.Cookie.SigningMethod
		report.CookieSecure = e.config.Cookie.Secure
	}
	report.IssuanceUnthrottled = !report.IssuanceLimit.Active
	if e.customStore {
		report.StoreBackend = "custom"
	}

	return report
}

func windowReport(w WindowConfig) WindowReport {
	return WindowReport{
		Active: w.enabled(),
		Limit:  w.Limit,
		Period: w.Period,
	}
}
