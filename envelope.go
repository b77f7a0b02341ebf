// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package ilo

import (
	"encoding/xml"
	"strings"
	"unicode/utf8"
)

// xmlHeader precedes every request document
const xmlHeader = "<?xml version=\"1.0\"?>\r\n"

// BuildEnvelope renders the complete request document for a command
//
// The command element is wrapped in LOGIN (carrying the credentials
// verbatim) and RIBCL elements. Parameters are validated before rendering
// and appear as attributes in the command table's order, using the
// dialect's attribute names.
//
// An unresolved dialect renders the legacy form.
//
// Example:
//
//	doc, err := ilo.BuildEnvelope("set_host_power", "admin", "secret",
//	    ilo.DialectLegacy, []ilo.Param{{Key: "state", Value: "on"}})
//
// Returns InvalidParameter for an unknown command, an invalid parameter or
// credentials that cannot be carried verbatim in XML.
func BuildEnvelope(name, username, password string, dialect Dialect, params []Param) (string, error) {
	cmd, ok := LookupCommand(name)
	if !ok {
		return "", invalidParam(name, "unknown command %q", name)
	}
	values, err := cmd.normalize(params)
	if err != nil {
		return "", err
	}
	if err := checkCredentials(cmd.Name, username, password); err != nil {
		return "", err
	}
	return renderEnvelope(cmd, username, password, dialect, values), nil
}

// renderEnvelope writes the document for already validated values
func renderEnvelope(cmd *Command, username, password string, dialect Dialect, values []wireParam) string {
	enc := cmd.Encoding(dialect)
	mode := "read"
	if cmd.Write {
		mode = "write"
	}

	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<RIBCL VERSION="`)
	b.WriteString(dialect.Version())
	b.WriteString("\">\r\n")

	b.WriteString("<LOGIN")
	writeAttr(&b, "USER_LOGIN", username)
	writeAttr(&b, "PASSWORD", password)
	b.WriteString(">\r\n")

	b.WriteString("<")
	b.WriteString(cmd.Section)
	writeAttr(&b, "MODE", mode)
	b.WriteString(">\r\n")

	b.WriteString("<")
	b.WriteString(enc.Tag)
	for _, v := range values {
		writeAttr(&b, enc.attr(v.spec.Name), v.value)
	}
	b.WriteString("/>\r\n")

	b.WriteString("</")
	b.WriteString(cmd.Section)
	b.WriteString(">\r\n</LOGIN>\r\n</RIBCL>\r\n")
	return b.String()
}

// checkCredentials rejects login values that XML escaping would alter
//
// Invalid UTF-8 and control characters would reach the server as U+FFFD or
// character references, i.e. as different credentials. The values
// themselves never appear in the error.
func checkCredentials(op, username, password string) *IloError {
	for _, cred := range []struct{ name, value string }{
		{"username", username},
		{"password", password},
	} {
		if !utf8.ValidString(cred.value) {
			return invalidParam(op, "%s is not valid UTF-8", cred.name)
		}
		for i := 0; i < len(cred.value); i++ {
			if cred.value[i] < 0x20 || cred.value[i] == 0x7F {
				return invalidParam(op, "%s contains control character at position %d", cred.name, i)
			}
		}
	}
	return nil
}

// writeAttr writes ` NAME="escaped value"`
func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	// strings.Builder writes never fail
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}
