package tools

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	defaultServerName = "local"
	maxXMLSize        = 1024 * 1024 // tool calls carry selectors and short text only
)

var toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

// ampersandEntityRegex matches ampersands that are already part of XML entities
// to avoid double-escaping them. Matches: &amp; &lt; &gt; &quot; &apos; &#123; &#xAB;
var ampersandEntityRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);`)

// ParseToolCall extracts a tool call from text containing an XML-formatted
// tool invocation.
//
// Expected format:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>browser_fill_text</tool_name>
//	<arguments>
//	  <selector>input[name="q"]</selector>
//	  <text><![CDATA[cats & dogs]]></text>
//	</arguments>
//	</tool>
//
// Returns the parsed ToolCall and the text left after removing the call.
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxXMLSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxXMLSize)
	}

	match := toolRegex.FindString(text)
	if match == "" {
		return nil, text, fmt.Errorf("no tool call found in text")
	}
	toolXML := strings.TrimSpace(match)

	var toolCall ToolCall
	if err := UnmarshalXMLWithFallback([]byte(toolXML), &toolCall); err != nil {
		snippet := toolXML
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet)
	}

	if toolCall.ToolName == "" {
		return nil, text, fmt.Errorf("tool_name is required in tool call")
	}
	if toolCall.ServerName == "" {
		toolCall.ServerName = defaultServerName
	}

	remainingText := strings.TrimSpace(toolRegex.ReplaceAllString(text, ""))
	return &toolCall, remainingText, nil
}

// HasToolCall checks if the text contains a tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// ValidateToolCall checks if a ToolCall has all required fields.
func ValidateToolCall(tc *ToolCall) error {
	if tc == nil {
		return fmt.Errorf("tool call is nil")
	}
	if tc.ToolName == "" {
		return fmt.Errorf("tool_name is required")
	}
	if tc.ServerName == "" {
		return fmt.Errorf("server_name is required")
	}
	return nil
}

// BuildArgumentsXML renders flat string arguments as an <arguments> block,
// escaping values. Keys are emitted in sorted order.
func BuildArgumentsXML(args map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<arguments>")
	for _, k := range keys {
		if k == "" || strings.ContainsAny(k, "<>&\"' \t\n/") {
			return nil, fmt.Errorf("invalid argument name %q", k)
		}
		fmt.Fprintf(&buf, "<%s>", k)
		if err := xml.EscapeText(&buf, []byte(args[k])); err != nil {
			return nil, fmt.Errorf("failed to escape argument %s: %w", k, err)
		}
		fmt.Fprintf(&buf, "</%s>", k)
	}
	buf.WriteString("</arguments>")
	return buf.Bytes(), nil
}

// UnmarshalXMLWithFallback attempts to unmarshal XML, with fallback to
// escape unescaped ampersands if the initial parse fails. Playwright text
// selectors ("text=Terms & Conditions") often carry a bare &.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	err := xml.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces bare & with &amp; while preserving
// existing entities (&amp;, &lt;, &gt;, &quot;, &apos;, &#..;)
func escapeUnescapedAmpersands(data []byte) []byte {
	text := string(data)

	entityPositions := make(map[int]bool)
	for _, match := range ampersandEntityRegex.FindAllStringIndex(text, -1) {
		entityPositions[match[0]] = true
	}

	var result strings.Builder
	result.Grow(len(text) + 20)

	for i := 0; i < len(text); i++ {
		if text[i] == '&' && !entityPositions[i] {
			result.WriteString("&amp;")
		} else {
			result.WriteByte(text[i])
		}
	}

	return []byte(result.String())
}
