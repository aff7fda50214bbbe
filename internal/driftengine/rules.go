package driftengine

import (
	"fmt"
	"strings"

	"github.com/docsentinel/docsentinel/internal/codechunk"
	"github.com/docsentinel/docsentinel/internal/store"
)

// evaluateHardRules runs the four structural rules over one scan's code
// chunk changes. It needs no embeddings -- only the reconciled chunk state
// and a mention index built from the doc chunks currently on file.
func evaluateHardRules(changes []CodeChunkChange, mentions *MentionIndex) []Finding {
	var findings []Finding

	for _, c := range changes {
		switch {
		case c.Changed():
			findings = append(findings, signatureChangedFindings(c, mentions)...)
		case c.Added():
			if f, ok := symbolAddedFinding(c, mentions); ok {
				findings = append(findings, f)
			}
		case c.Removed():
			if f, ok := symbolRemovedFinding(c, mentions); ok {
				findings = append(findings, f)
			}
		}
	}

	return findings
}

func signatureChangedFindings(c CodeChunkChange, mentions *MentionIndex) []Finding {
	var findings []Finding

	currentParams := codechunk.ParamCount(paramList(c.Current.Signature))
	previousParams := codechunk.ParamCount(paramList(c.Previous.Signature))

	sigChanged := c.Current.SignatureHash != c.Previous.SignatureHash
	paramsChanged := currentParams != previousParams
	if !sigChanged && !paramsChanged {
		return nil
	}

	mentioned, docs := mentions.Mentions(c.Current.QualifiedName)

	if sigChanged && mentioned {
		findings = append(findings, Finding{
			Rule:        RuleSignatureChanged,
			Severity:    SeverityHigh,
			Confidence:  0.95,
			Description: fmt.Sprintf("signature of %s changed but documentation still describes the old shape", c.Current.QualifiedName),
			Evidence:    signatureEvidence(c, docs),
			RelatedCode: []string{c.Identity},
			RelatedDoc:  docIdentities(docs),
		})
	}

	if paramsChanged {
		sev := SeverityLow
		if mentioned {
			sev = SeverityHigh
		}
		findings = append(findings, Finding{
			Rule:        RuleParamCountChanged,
			Severity:    sev,
			Confidence:  0.90,
			Description: fmt.Sprintf("parameter count of %s changed from %d to %d", c.Current.QualifiedName, previousParams, currentParams),
			Evidence:    signatureEvidence(c, docs),
			RelatedCode: []string{c.Identity},
			RelatedDoc:  docIdentities(docs),
		})
	}

	return findings
}

func symbolRemovedFinding(c CodeChunkChange, mentions *MentionIndex) (Finding, bool) {
	mentioned, docs := mentions.Mentions(c.Previous.QualifiedName)
	if !mentioned {
		return Finding{}, false
	}

	return Finding{
		Rule:        RuleSymbolRemoved,
		Severity:    SeverityCritical,
		Confidence:  0.98,
		Description: fmt.Sprintf("%s was removed but documentation still references it", c.Previous.QualifiedName),
		Evidence:    fmt.Sprintf("prior signature: %s\n\n%s", c.Previous.Signature, docExcerpts(docs)),
		RelatedCode: []string{c.Identity},
		RelatedDoc:  docIdentities(docs),
	}, true
}

func symbolAddedFinding(c CodeChunkChange, mentions *MentionIndex) (Finding, bool) {
	mentioned, _ := mentions.Mentions(c.Current.QualifiedName)
	if mentioned {
		return Finding{}, false
	}

	return Finding{
		Rule:        RuleSymbolAdded,
		Severity:    SeverityMedium,
		Confidence:  0.80,
		Description: fmt.Sprintf("%s is new and undocumented", c.Current.QualifiedName),
		Evidence:    fmt.Sprintf("new signature: %s", c.Current.Signature),
		RelatedCode: []string{c.Identity},
	}, true
}

func signatureEvidence(c CodeChunkChange, docs []store.DocChunkRow) string {
	return fmt.Sprintf("old signature: %s\nnew signature: %s\n\n%s", c.Previous.Signature, c.Current.Signature, docExcerpts(docs))
}

func docExcerpts(docs []store.DocChunkRow) string {
	if len(docs) == 0 {
		return "matching doc excerpts: none"
	}
	out := "matching doc excerpts:"
	for _, d := range docs {
		out += fmt.Sprintf("\n- %s (%s): %s", d.Path, d.HeadingPath, truncate(d.Content, 200))
	}
	return out
}

func docIdentities(docs []store.DocChunkRow) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.Identity
	}
	return ids
}

// paramList extracts the balanced "(...)" parameter list from a full
// signature such as "add(a: i32, b: i32) -> i32", so ParamCount sees just
// the parameter text rather than the return type and qualifier around it.
func paramList(sig string) string {
	start := strings.Index(sig, "(")
	if start < 0 {
		return "()"
	}
	depth := 0
	for i := start; i < len(sig); i++ {
		switch sig[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return sig[start : i+1]
			}
		}
	}
	return "()"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
