package testutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hupe1980/lakescan/tabular"
)

// HealthColumns is the header of generated datasets, modeled on public
// county-level health indicator extracts.
var HealthColumns = []string{"Year", "StateAbbr", "CountyName", "Measure", "Data_Value", "TotalPopulation"}

var (
	states   = []string{"GA", "CA", "TX", "FL", "NY", "CO", "AL"}
	counties = map[string][]string{
		"GA": {"Fulton", "Cobb", "DeKalb", "Gwinnett"},
		"CA": {"Los Angeles", "San Diego", "Orange"},
		"TX": {"Harris", "Dallas", "Travis"},
		"FL": {"Miami-Dade", "Broward", "Orange"},
		"NY": {"Kings", "Queens", "New York"},
		"CO": {"Denver", "Boulder"},
		"AL": {"Jefferson", "Mobile"},
	}
	measures = []string{"diabetes", "obesity", "asthma", "stroke", "depression", "heart disease"}
)

// DatasetSpec configures GenerateDataset.
type DatasetSpec struct {
	Rows      int
	Delimiter byte // default ','
	// Every Nth data row is made malformed (one field short). Zero disables.
	MalformedEvery int
	// Quote wraps CountyName in quotes with an embedded delimiter.
	Quote bool
}

// GenerateDataset renders a delimited dataset with a header line.
func (r *RNG) GenerateDataset(spec DatasetSpec) []byte {
	delim := spec.Delimiter
	if delim == 0 {
		delim = ','
	}
	var buf bytes.Buffer
	buf.WriteString(tabular.JoinFields(HealthColumns, delim))
	buf.WriteByte('\n')

	for i := 0; i < spec.Rows; i++ {
		state := Pick(r, states)
		county := Pick(r, counties[state])
		if spec.Quote {
			county = county + string(delim) + " " + state
		}
		values := []string{
			fmt.Sprintf("%d", 2018+r.Intn(5)),
			state,
			county,
			Pick(r, measures),
			fmt.Sprintf("%.1f", 5+r.Float64()*30),
			fmt.Sprintf("%d", 1000+r.Intn(1_000_000)),
		}
		if spec.MalformedEvery > 0 && (i+1)%spec.MalformedEvery == 0 {
			values = values[:len(values)-1]
		}
		buf.WriteString(tabular.JoinFields(values, delim))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// RepeatRows renders a header followed by n copies of row.
func RepeatRows(header, row string, n int) []byte {
	var sb strings.Builder
	sb.Grow(len(header) + 1 + n*(len(row)+1))
	sb.WriteString(header)
	sb.WriteByte('\n')
	for i := 0; i < n; i++ {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}
