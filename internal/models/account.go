package models

// AccountSettings is the single mail account this instance serves: server
// endpoints, credentials and composition defaults. The password is stored
// sealed and only opened when a connection is dialed.
type AccountSettings struct {
	DisplayName    string `json:"display_name"`
	Address        string `json:"address"`
	IMAPHost       string `json:"imap_host"`
	SMTPHost       string `json:"smtp_host"`
	Username       string `json:"username"`
	SealedPassword string `json:"-"`
	SignatureText  string `json:"signature_text"`
	SignatureHTML  string `json:"signature_html"`
	UseTLS         bool   `json:"use_tls"`
}
