package saml

import (
	"fmt"
	"net/url"
	"strings"
)

// HTTP-POST binding output (SAML 2.0 Bindings Section 3.5). The issuer
// never performs the POST itself: the browser auto-submits the form so
// the relying party sees a standard SP-side binding.

// GeneratePostForm wraps an already base64-encoded SAMLResponse in a
// minimal self-submitting HTML form targeting the ACS URL.
func GeneratePostForm(destination, encodedResponse, relayState string) (string, error) {
	if err := validateDestinationURL(destination); err != nil {
		return "", fmt.Errorf("invalid destination URL: %w", err)
	}

	if len(relayState) > 1024 {
		relayState = relayState[:1024]
	}
	relayStateInput := ""
	if relayState != "" {
		relayStateInput = fmt.Sprintf(`<input type="hidden" name="RelayState" value="%s"/>`, escapeHTML(relayState))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>SAML POST Binding</title>
</head>
<body onload="document.forms[0].submit()">
    <noscript>
        <p>JavaScript is required. Please click the button below to continue.</p>
    </noscript>
    <form method="POST" action="%s">
        <input type="hidden" name="SAMLResponse" value="%s"/>
        %s
        <noscript>
            <input type="submit" value="Continue"/>
        </noscript>
    </form>
</body>
</html>`, escapeHTML(destination), encodedResponse, relayStateInput), nil
}

// escapeHTML escapes HTML special characters
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	return s
}

// validateDestinationURL rejects URLs unsafe as a form action
// (javascript:, data: and friends).
func validateDestinationURL(dest string) error {
	if dest == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(dest)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "" && scheme != "http" && scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s", scheme)
	}
	if parsed.Host != "" && scheme == "" {
		return fmt.Errorf("absolute URL missing scheme")
	}

	return nil
}
