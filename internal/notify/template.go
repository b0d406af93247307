package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var credentialsTmpl = template.Must(template.ParseFS(templateFS, "templates/credentials.html"))

// CredentialsSubject is the subject line of the account-setup email.
const CredentialsSubject = "Set up your facility service account"

// CredentialsEmail is the data rendered into the account-setup email.
type CredentialsEmail struct {
	Name      string
	Email     string
	ResetLink string
	LoginURL  string
}

// Render produces the HTML body.
func (m CredentialsEmail) Render() (string, error) {
	var buf bytes.Buffer
	if err := credentialsTmpl.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("rendering credentials email: %w", err)
	}
	return buf.String(), nil
}
