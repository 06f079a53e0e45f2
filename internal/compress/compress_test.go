package compress

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoi01/fridgesnap/internal/models"
)

const sampleCSV = `name,category,quantity,price,purchase_date,expiry_date
milk,dairy,1,198,2024-04-01,2024-04-08

cabbage,vegetables,,120.5,,
`

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarArchive(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: f[0], Mode: 0o644, Size: int64(len(f[1])), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestOpenCSV(t *testing.T) {
	tests := []struct {
		name        string
		archiveType string
		data        func(t *testing.T) []byte
		wantErr     bool
	}{
		{
			name:        "zip",
			archiveType: "zip",
			data: func(t *testing.T) []byte {
				return zipArchive(t, map[string]string{"readme.txt": "hi", "data/items.CSV": sampleCSV})
			},
		},
		{
			name:        "tar",
			archiveType: "tar",
			data: func(t *testing.T) []byte {
				return tarArchive(t, [][2]string{{"notes.txt", "x"}, {"items.csv", sampleCSV}})
			},
		},
		{
			name:        "zip without csv",
			archiveType: "zip",
			data: func(t *testing.T) []byte {
				return zipArchive(t, map[string]string{"readme.txt": "hi"})
			},
			wantErr: true,
		},
		{
			name:        "tar without csv",
			archiveType: "tar",
			data: func(t *testing.T) []byte {
				return tarArchive(t, [][2]string{{"notes.txt", "x"}})
			},
			wantErr: true,
		},
		{
			name:        "unknown type",
			archiveType: "rar",
			data:        func(t *testing.T) []byte { return []byte("x") },
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := OpenCSV(tt.archiveType, io.NopCloser(bytes.NewReader(tt.data(t))))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, sampleCSV, string(got))
		})
	}
}

func TestDecodeItems(t *testing.T) {
	items, err := DecodeItems(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, ItemRecord{
		Row:          2,
		Name:         "milk",
		Category:     "dairy",
		Quantity:     1,
		Price:        items[0].Price,
		PurchaseDate: models.NewDate(2024, time.April, 1),
		ExpiryDate:   models.NewDate(2024, time.April, 8),
	}, items[0])
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(198)))

	assert.Equal(t, 4, items[1].Row)
	assert.Equal(t, 0, items[1].Quantity)
	assert.True(t, items[1].PurchaseDate.IsZero())
	assert.True(t, items[1].Price.Equal(decimal.RequireFromString("120.5")))
}

func TestDecodeItems_ReorderedColumns(t *testing.T) {
	items, err := DecodeItems(strings.NewReader("\ufeffPrice,Name\n10,egg\n"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "egg", items[0].Name)
	assert.True(t, items[0].Price.Equal(decimal.NewFromInt(10)))
}

func TestDecodeItems_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		row  int
	}{
		{"bad quantity", "name,quantity\nmilk,two\n", 2},
		{"bad price", "name,price\nmilk,1\negg,abc\n", 3},
		{"bad date", "name,expiry_date\nmilk,08/04/2024\n", 2},
		{"missing name column", "title\nmilk\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeItems(strings.NewReader(tt.in))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.row, rowErr.Row)
		})
	}

	_, err := DecodeItems(strings.NewReader(""))
	assert.Error(t, err)
}

func TestEncodeItemsIntoZip(t *testing.T) {
	d := models.NewDate(2024, time.April, 1)
	items := []models.FoodItem{
		{Name: "milk, low fat", Category: models.CategoryDairy, Quantity: 1, Price: decimal.NewFromInt(198), PurchaseDate: d, ExpiryDate: d.AddDays(7)},
	}

	var buf bytes.Buffer
	zw, err := NewZipWriter(&buf, "items.csv")
	require.NoError(t, err)
	require.NoError(t, EncodeItems(zw, items))
	require.NoError(t, zw.Close())

	rc, err := OpenCSV("zip", io.NopCloser(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	defer rc.Close()

	back, err := DecodeItems(rc)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "milk, low fat", back[0].Name)
	assert.Equal(t, d.AddDays(7), back[0].ExpiryDate)
}
