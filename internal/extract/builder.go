package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"Go2FlowText/internal/model"
)

// ErrLineCountMismatch reports that the dissector output does not have exactly
// one line per collected packet.
var ErrLineCountMismatch = errors.New("dissector line count does not match packet counts")

// Builder turns a merged capture into one text record per flow.
type Builder struct {
	extractor model.FieldExtractor
	fields    []string
}

// NewBuilder creates a builder. An empty field list selects DefaultFields.
func NewBuilder(extractor model.FieldExtractor, fields []string) *Builder {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	return &Builder{extractor: extractor, fields: fields}
}

// Build runs the extractor once over mergedPath and splits its output into
// flows using counts.
func (b *Builder) Build(ctx context.Context, mergedPath string, counts []int, features []string) ([]string, error) {
	lines, err := b.extractor.Extract(ctx, mergedPath, b.fields)
	if err != nil {
		return nil, err
	}
	return BuildFlowTexts(lines, b.fields, counts, features)
}

// BuildFlowTexts assigns counts[i] consecutive lines to flow i and renders it.
func BuildFlowTexts(lines, fields []string, counts []int, features []string) ([]string, error) {
	if len(counts) != len(features) {
		return nil, fmt.Errorf("got %d packet counts but %d feature strings", len(counts), len(features))
	}
	total := 0
	for _, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("negative packet count %d", n)
		}
		total += n
	}
	if total != len(lines) {
		return nil, fmt.Errorf("%w: %d lines for %d packets", ErrLineCountMismatch, len(lines), total)
	}

	texts := make([]string, 0, len(counts))
	offset := 0
	for i, n := range counts {
		texts = append(texts, FlowText(lines[offset:offset+n], fields, features[i]))
		offset += n
		if (i+1)%10000 == 0 {
			log.Printf("Built %d of %d flows...", i+1, len(counts))
		}
	}
	return texts, nil
}

// FlowText renders one flow: every packet as "<pck>" + fields + " ", then
// " <feature>" + feature.
func FlowText(lines, fields []string, feature string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(PacketMarker)
		b.WriteString(PacketText(line, fields))
		b.WriteString(" ")
	}
	b.WriteString(" ")
	b.WriteString(FeatureMarker)
	b.WriteString(feature)
	return b.String()
}

// PacketText pairs the tab separated values of line with fields, skipping empty
// values and truncating payload fields.
func PacketText(line string, fields []string) string {
	values := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	parts := make([]string, 0, len(fields))
	for i, field := range fields {
		if i >= len(values) {
			break
		}
		value := values[i]
		if value == "" {
			continue
		}
		if payloadFields[field] {
			value = TruncatePayload(value)
		}
		parts = append(parts, field+": "+value)
	}
	return strings.Join(parts, ", ")
}

// TruncatePayload keeps the first MaxPayloadLength characters of a payload.
func TruncatePayload(value string) string {
	if len(value) > MaxPayloadLength {
		return value[:MaxPayloadLength]
	}
	return value
}
