package chat

import (
	"strings"
	"time"
)

// ReplyDelay is how long the assistant "types" before its reply lands.
const ReplyDelay = 1500 * time.Millisecond

const (
	contractReply = "When reviewing an employment contract, pay special attention to: compensation structure, termination clauses, non-compete agreements, intellectual property rights, and confidentiality provisions. I'd be happy to analyze specific clauses if you share the document."
	documentReply = "I can help analyze various legal documents including contracts, agreements, policies, and more. Please upload the document and I'll provide a comprehensive summary with key findings and potential concerns."
	privacyReply  = "Recent data privacy regulations include updates to GDPR enforcement, new state privacy laws in California (CPRA), and emerging federal privacy legislation. Would you like me to elaborate on any specific privacy law or jurisdiction?"
	fallbackReply = "I understand your question about legal matters. Based on current legal precedents and regulations, I can provide guidance on this topic. Could you provide more specific details about your situation so I can give you more targeted assistance?"
)

// Rule pairs a lowercase keyword with the reply it selects.
type Rule struct {
	Keyword string
	Reply   string
}

func (r Rule) Matches(lowered string) bool {
	return strings.Contains(lowered, r.Keyword)
}

// DefaultRules is evaluated in order; the first match wins.
var DefaultRules = []Rule{
	{Keyword: "contract", Reply: contractReply},
	{Keyword: "document", Reply: documentReply},
	{Keyword: "privacy", Reply: privacyReply},
}

// AttachmentKeywords trigger the document summary independently of the rule
// that produced the text.
var AttachmentKeywords = []string{"document", "contract"}

func DocumentSummary() *Attachment {
	return &Attachment{
		Title:   "Document Analysis Summary",
		Summary: "Based on the document provided, I've identified key terms and potential issues that require attention.",
		KeyPoints: []string{
			"Contract term: 2 years with automatic renewal clause",
			"Termination notice period: 30 days required",
			"Non-compete clause applies for 6 months post-termination",
			"Confidentiality obligations extend indefinitely",
		},
	}
}

// Reply is the generated assistant content, before it gets an id and a
// timestamp.
type Reply struct {
	Text       string
	Attachment *Attachment
}

type Responder struct {
	rules              []Rule
	fallback           string
	attachmentKeywords []string
}

func NewResponder() *Responder {
	return &Responder{
		rules:              DefaultRules,
		fallback:           fallbackReply,
		attachmentKeywords: AttachmentKeywords,
	}
}

// NewResponderWithRules builds a responder over a custom rule set. Keywords
// are lowercased so matching stays case-insensitive.
func NewResponderWithRules(rules []Rule, fallback string, attachmentKeywords []string) *Responder {
	lowered := make([]Rule, len(rules))
	for i, r := range rules {
		lowered[i] = Rule{Keyword: strings.ToLower(r.Keyword), Reply: r.Reply}
	}
	kws := make([]string, len(attachmentKeywords))
	for i, k := range attachmentKeywords {
		kws[i] = strings.ToLower(k)
	}
	return &Responder{rules: lowered, fallback: fallback, attachmentKeywords: kws}
}

func (r *Responder) Generate(input string) Reply {
	lowered := strings.ToLower(input)

	reply := Reply{Text: r.fallback}
	for _, rule := range r.rules {
		if rule.Matches(lowered) {
			reply.Text = rule.Reply
			break
		}
	}

	for _, kw := range r.attachmentKeywords {
		if strings.Contains(lowered, kw) {
			reply.Attachment = DocumentSummary()
			break
		}
	}

	return reply
}
