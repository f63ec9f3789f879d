package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTable_WriteCSV(t *testing.T) {
	table := &Table{
		Time: []int64{0, 1000},
		Columns: []Column{
			{Name: "speed", Kind: KindNumeric, Floats: []float64{1.25, 1e-7}},
			{Name: "gear", Kind: KindText, Texts: []string{"N", "a,b"}},
		},
	}
	var b strings.Builder
	require.NoError(t, table.WriteCSV(&b, "_timestamp"))
	assert.Equal(t, "_timestamp,speed,gear\n0,1.25,N\n1000,0.0000001,\"a,b\"\n", b.String())
}

func TestTable_WriteCSV_RoundTrip(t *testing.T) {
	src := "_timestamp,speed,gear\n0,10.5,N\n1000,20,1\n"
	root := newSession(t, "run1")
	writeRecording(t, root, "can0", "WHEEL.csv", src)

	loader, err := NewLoader(noResample(), zaptest.NewLogger(t))
	require.NoError(t, err)
	d, err := loader.Load(context.Background(), root)
	require.NoError(t, err)
	table, err := d.Table("can0", "WHEEL")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, table.WriteCSV(&b, DefaultTimestampColumn))
	assert.Equal(t, src, b.String())
}
