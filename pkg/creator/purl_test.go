package creator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/identifier"
)

func TestPurlCreatorAddDedupes(t *testing.T) {
	c := NewPurlCreator()
	p1 := identifier.NewPurl("maven", "org.apache.logging.log4j", "log4j-core", "2.14.1", nil)
	p2 := identifier.NewPurl("maven", "org.apache.logging.log4j", "log4j-core", "2.14.1", nil)

	c.Add(p1)
	c.Add(p2)

	assert.Equal(t, 1, c.Len())
}

func TestPurlCreatorCreateEmpty(t *testing.T) {
	c := NewPurlCreator()
	conn := &fakeConn{}

	require.NoError(t, c.Create(context.Background(), conn))
	assert.Empty(t, conn.execs)
}

func TestPurlCreatorCreateOrderAndShape(t *testing.T) {
	c := NewPurlCreator()
	c.Add(identifier.NewPurl("maven", "org.apache.logging.log4j", "log4j-core", "2.14.1", nil))
	c.Add(identifier.NewPurl("npm", "", "left-pad", "1.3.0", map[string]string{"arch": "x86"}))

	conn := &fakeConn{}
	require.NoError(t, c.Create(context.Background(), conn))

	require.Len(t, conn.execs, 3)
	assert.Contains(t, conn.execs[0].sql, "INSERT INTO base_purl")
	assert.Contains(t, conn.execs[1].sql, "INSERT INTO versioned_purl")
	assert.Contains(t, conn.execs[2].sql, "INSERT INTO qualified_purl")

	// base_purl: 2 rows * 4 cols = 8 args
	assert.Len(t, conn.execs[0].args, 8)
	// versioned_purl: 2 rows * 3 cols = 6 args
	assert.Len(t, conn.execs[1].args, 6)
	// qualified_purl: 2 rows * 3 cols = 6 args, third arg per row is JSON qualifiers
	assert.Len(t, conn.execs[2].args, 6)
	assert.Equal(t, []byte(`null`), conn.execs[2].args[2])
	assert.JSONEq(t, `{"arch":"x86"}`, string(conn.execs[2].args[5].([]byte)))
}

func TestPurlCreatorCreatePropagatesDatabaseError(t *testing.T) {
	c := NewPurlCreator()
	c.Add(identifier.NewPurl("npm", "", "left-pad", "1.3.0", nil))

	conn := &fakeConn{failOn: 1, failErr: assert.AnError}
	err := c.Create(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_purl")
}

func TestPurlCreatorChunking(t *testing.T) {
	c := NewPurlCreator()
	for i := 0; i < 20000; i++ {
		c.Add(identifier.NewPurl("generic", "ns", "pkg", fmt.Sprintf("%d-1.0", i), nil))
	}
	assert.Equal(t, 20000, c.Len())

	conn := &fakeConn{}
	require.NoError(t, c.Create(context.Background(), conn))

	// base_purl is 4 cols -> chunkSize 8000 -> ceil(20000/8000) = 3 chunks
	baseChunks := 0
	for _, e := range conn.execs {
		if len(e.sql) > 0 && e.sql[:18] == "INSERT INTO base_p" {
			baseChunks++
		}
	}
	assert.Equal(t, 3, baseChunks)
}
