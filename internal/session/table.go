package session

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"unicode"

	"Go2FlowText/internal/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// column roles, keyed by normalized header name
const (
	roleFlowID    = "flowid"
	roleSrcIP     = "srcip"
	roleSrcPort   = "srcport"
	roleDstIP     = "dstip"
	roleDstPort   = "dstport"
	roleProtocol  = "protocol"
	roleTimestamp = "timestamp"
	roleDuration  = "duration"
	roleLabel     = "label"
)

var roleAliases = map[string]string{
	"flowid":             roleFlowID,
	"srcip":              roleSrcIP,
	"sourceip":           roleSrcIP,
	"srcaddr":            roleSrcIP,
	"sourceaddress":      roleSrcIP,
	"srcport":            roleSrcPort,
	"sourceport":         roleSrcPort,
	"dstip":              roleDstIP,
	"destinationip":      roleDstIP,
	"dstaddr":            roleDstIP,
	"destinationaddress": roleDstIP,
	"dstport":            roleDstPort,
	"destinationport":    roleDstPort,
	"protocol":           roleProtocol,
	"proto":              roleProtocol,
	"timestamp":          roleTimestamp,
	"duration":           roleDuration,
	"flowduration":       roleDuration,
	"label":              roleLabel,
}

// Table is a session statistics table indexed by 5-tuple and flow identifier.
type Table struct {
	names   []string
	rows    [][]string
	roles   map[string]int
	keep    []int
	byTuple map[string]int
	byID    map[string]int
}

// normalize lowercases a header and drops everything but letters and digits,
// so " Source IP", "SourceIP" and "source_ip" compare equal.
func normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LoadTable reads a feature CSV. All columns are kept as strings.
func LoadTable(path string, exclude []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature table: %w", err)
	}
	defer f.Close()

	// The header is read as a data row so duplicate names reach us untouched.
	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse feature table '%s': %w", path, df.Err)
	}
	return newTable(df.Records()[1:], exclude), nil
}

// dedupNames suffixes repeated column names with ".1", ".2", ... leaving the
// first occurrence as is, and names empty headers "Unnamed: <index>".
func dedupNames(header []string) []string {
	names := make([]string, len(header))
	counts := make(map[string]int)
	for i, col := range header {
		if col == "" {
			col = fmt.Sprintf("Unnamed: %d", i)
		}
		cur := counts[col]
		for cur > 0 {
			counts[col] = cur + 1
			col = fmt.Sprintf("%s.%d", col, cur)
			cur = counts[col]
		}
		names[i] = col
		counts[col] = cur + 1
	}
	return names
}

// newTable indexes records, whose first entry is the raw header row.
func newTable(records [][]string, exclude []string) *Table {
	t := &Table{
		roles:   make(map[string]int),
		byTuple: make(map[string]int),
		byID:    make(map[string]int),
	}
	if len(records) == 0 {
		return t
	}
	t.names = dedupNames(records[0])
	for i, name := range t.names {
		t.names[i] = strings.TrimSpace(name)
	}
	t.rows = records[1:]

	extra := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		extra[normalize(name)] = true
	}
	for i, name := range t.names {
		n := normalize(name)
		if role, ok := roleAliases[n]; ok {
			if _, seen := t.roles[role]; !seen {
				t.roles[role] = i
			}
			continue
		}
		if extra[n] {
			continue
		}
		t.keep = append(t.keep, i)
	}

	for i, row := range t.rows {
		if ft, ok := t.rowTuple(row); ok {
			if _, dup := t.byTuple[ft.Key()]; !dup {
				t.byTuple[ft.Key()] = i
			}
		}
		if idx, ok := t.roles[roleFlowID]; ok {
			id := strings.TrimSpace(row[idx])
			if _, dup := t.byID[id]; !dup && id != "" {
				t.byID[id] = i
			}
		}
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) hasProtocol() bool {
	_, ok := t.roles[roleProtocol]
	return ok
}

func (t *Table) rowTuple(row []string) (model.FiveTuple, bool) {
	var ft model.FiveTuple
	for _, role := range []string{roleSrcIP, roleSrcPort, roleDstIP, roleDstPort} {
		if _, ok := t.roles[role]; !ok {
			return ft, false
		}
	}
	var err error
	if ft.SrcIP, err = parseTableAddr(row[t.roles[roleSrcIP]]); err != nil {
		return ft, false
	}
	if ft.DstIP, err = parseTableAddr(row[t.roles[roleDstIP]]); err != nil {
		return ft, false
	}
	srcPort, err := parsePort(row[t.roles[roleSrcPort]])
	if err != nil {
		return ft, false
	}
	dstPort, err := parsePort(row[t.roles[roleDstPort]])
	if err != nil {
		return ft, false
	}
	ft.SrcPort, ft.DstPort = srcPort, dstPort
	if idx, ok := t.roles[roleProtocol]; ok {
		ft.Protocol = protocolName(row[idx])
	}
	return ft, true
}

// LookupTuple finds the row for ft in either orientation.
func (t *Table) LookupTuple(ft model.FiveTuple) (int, bool) {
	if !t.hasProtocol() {
		ft.Protocol = ""
	}
	for _, candidate := range []model.FiveTuple{ft, ft.Reverse()} {
		if i, ok := t.byTuple[candidate.Key()]; ok {
			return i, true
		}
	}
	return 0, false
}

// LookupID finds the row whose flow identifier equals one of ids.
func (t *Table) LookupID(ids ...string) (int, bool) {
	for _, id := range ids {
		if i, ok := t.byID[id]; ok {
			return i, true
		}
	}
	return 0, false
}

// Feature renders row i as "column: value" pairs joined by ", ", leaving out
// identifying columns.
func (t *Table) Feature(i int) string {
	row := t.rows[i]
	parts := make([]string, 0, len(t.keep))
	for _, idx := range t.keep {
		parts = append(parts, t.names[idx]+": "+strings.TrimSpace(row[idx]))
	}
	return strings.Join(parts, ", ")
}

func parseTableAddr(s string) (netip.Addr, error) {
	return netip.ParseAddr(strings.TrimSpace(s))
}

func parsePort(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return uint16(f), nil
	}
	return 0, fmt.Errorf("invalid port '%s'", s)
}

// protocolName maps IANA numbers and names to "tcp"/"udp".
func protocolName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "6", "6.0", "tcp":
		return "tcp"
	case "17", "17.0", "udp":
		return "udp"
	}
	return s
}

// protocolNumber is the inverse of protocolName for flow identifiers.
func protocolNumber(name string) string {
	switch strings.ToLower(name) {
	case "tcp":
		return "6"
	case "udp":
		return "17"
	}
	return name
}
