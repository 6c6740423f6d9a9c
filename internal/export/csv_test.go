package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/contact-extractor/internal/model"
)

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.CleanRecord{rec("Ann", "0411111111")}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "first_name,last_name,mobile,landline,address,email,date_of_birth,last_seen_date", lines[0])
	assert.Equal(t, "Ann,Smith,0411111111,,12 Main St Sydney NSW 2000,,,", lines[1])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(model.RecordColumns, ",")+"\n", buf.String())
}

func TestReadCSV_RoundTrip(t *testing.T) {
	in := []model.CleanRecord{rec("Ann", "0411111111"), rec("Bob", "0422222222")}
	in[1].Email = "bob@example.com"
	in[1].Address = "7 Quoted, Street Perth WA 6000"

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ReadCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadCSV_HeaderMapping(t *testing.T) {
	data := "\ufeffMobile, First_Name ,extra\n0411111111,Ann,x\n0422222222\n"

	out, err := ReadCSV(context.Background(), strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "0411111111", out[0].Mobile)
	assert.Equal(t, "Ann", out[0].FirstName)
	assert.Empty(t, out[0].LastName)
	assert.Equal(t, "0422222222", out[1].Mobile)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv is empty")

	_, err = ReadCSV(context.Background(), strings.NewReader("first_name,last_name\nAnn,Smith\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column mobile")
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("mobile\n0411111111\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestWriteSummaryCSV(t *testing.T) {
	outcomes := []model.DocumentOutcome{
		outcome("a.pdf", model.DocumentSuccess, []model.CleanRecord{rec("Ann", "0411111111")}, []model.CleanRecord{rec("Ann", "0411111111")}),
		{File: "b.pdf", Status: model.DocumentError, Error: "extract: timeout"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryCSV(&buf, outcomes))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file,status,raw_records,filtered_records,duration_sec,error", lines[0])
	assert.Equal(t, "a.pdf,success,1,1,1.50,", lines[1])
	assert.Equal(t, "b.pdf,error,0,0,0.00,extract: timeout", lines[2])
}
