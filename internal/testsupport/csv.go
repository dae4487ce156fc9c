package testsupport

import "strings"

// CombinedCSV is a small valid upload carrying both a nitrate tracer and
// conservative tracers.
const CombinedCSV = `Sample_id,timestamp,Long,Lat,Nitrate(NO3),Cl,SO4
S1,2024-03-01,8.55,47.37,12.5,45.0,20.1
S2,2024-03-02,8.56,47.38,8.2,50.2,18.7
S3,2024-03-03,8.57,47.39,15.0,48.8,22.4
`

// ConservativeCSV carries conservative tracers only.
const ConservativeCSV = `Sample_id,timestamp,Long,Lat,Cl
S1,2024-03-01,8.55,47.37,125
S2,2024-03-02,8.56,47.38,250
`

// CSV builds an upload body from a header and rows, one comma-joined record
// per argument.
func CSV(header string, rows ...string) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, row := range rows {
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
