// Package transcript normalizes agent conversation dumps into the message
// list stored in prompt records. Integrations hand transcripts over in one of
// two shapes: a plain {"messages": [...]} object, or the JSONL stream agent
// tools append to on disk, one wrapped entry per line with structured content
// blocks. Both collapse to role/content pairs; non-text blocks are dropped.
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

// jsonlEntry is one line of a tool-written transcript stream.
type jsonlEntry struct {
	Type    string `json:"type"`
	Message struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// contentBlock is one element of a structured message content array.
type contentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// Parse decodes transcript data in either accepted shape.
func Parse(data []byte) (*attribution.Transcript, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty transcript")
	}

	var plain attribution.Transcript
	if err := json.Unmarshal(data, &plain); err == nil && len(plain.Messages) > 0 {
		return &plain, nil
	}
	return parseJSONL(data)
}

// ParseFile reads a transcript stream from the path an agent hook reported.
func ParseFile(path string) (*attribution.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func parseJSONL(data []byte) (*attribution.Transcript, error) {
	t := &attribution.Transcript{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry jsonlEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.Type != "" && entry.Type != "user" && entry.Type != "assistant" {
			continue
		}
		role := entry.Message.Role
		if role == "" {
			continue
		}
		content := flattenContent(entry.Message.Content)
		if content == "" {
			continue
		}
		t.Messages = append(t.Messages, attribution.Message{Role: role, Content: content})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(t.Messages) == 0 {
		return nil, fmt.Errorf("no messages in transcript")
	}
	return t, nil
}

// flattenContent joins the text of a message's content, which is either a
// bare string or an array of typed blocks.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n")
}
