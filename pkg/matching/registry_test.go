package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistryCSV(t *testing.T) {
	t.Run("loads records by header name", func(t *testing.T) {
		path := writeTempCSV(t, "property_id,cert_number,address,house_number,owner_name,area\n"+
			"P001,京(2023)朝阳区不动产权第0012345号,北京市朝阳区幸福路100号,5-801,张三,90.25\n"+
			"P002,京(2023)朝阳区不动产权第0099999号,北京市海淀区学院路25号,3-502,李四,120\n")

		records, err := LoadRegistryCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "P001", records[0].PropertyID)
		assert.Equal(t, "北京市朝阳区幸福路100号", records[0].Address)
		assert.Equal(t, "5-801", records[0].HouseNumber)
		assert.Equal(t, "张三", records[0].OwnerName)
		assert.InDelta(t, 90.25, records[0].Area, 0.0001)
	})

	t.Run("header names are case insensitive", func(t *testing.T) {
		path := writeTempCSV(t, "Property_ID,Address\nP001,北京市朝阳区幸福路100号\n")

		records, err := LoadRegistryCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "P001", records[0].PropertyID)
	})

	t.Run("column order does not matter", func(t *testing.T) {
		path := writeTempCSV(t, "address,property_id\n北京市朝阳区幸福路100号,P001\n")

		records, err := LoadRegistryCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "北京市朝阳区幸福路100号", records[0].Address)
	})

	t.Run("rows without a property id are skipped", func(t *testing.T) {
		path := writeTempCSV(t, "property_id,address\nP001,地址一\n,无编号地址\nP003,地址三\n")

		records, err := LoadRegistryCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "P001", records[0].PropertyID)
		assert.Equal(t, "P003", records[1].PropertyID)
	})

	t.Run("short rows read as empty cells", func(t *testing.T) {
		path := writeTempCSV(t, "property_id,cert_number,address\nP001\n")

		records, err := LoadRegistryCSV(path)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].Address)
	})

	t.Run("missing property id column errors", func(t *testing.T) {
		path := writeTempCSV(t, "cert_number,address\n证号,地址\n")

		_, err := LoadRegistryCSV(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "property_id")
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadRegistryCSV(filepath.Join(t.TempDir(), "missing.csv"))
		assert.Error(t, err)
	})
}

func TestLoadRegistryXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"property_id", "address", "area"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"P001", "北京市朝阳区幸福路100号", 90.25}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"P002", "上海市浦东新区世纪道88号", 120}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := LoadRegistryXLSX(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "P001", records[0].PropertyID)
	assert.Equal(t, "北京市朝阳区幸福路100号", records[0].Address)
	assert.InDelta(t, 90.25, records[0].Area, 0.0001)
}

func TestLoadRegistryFile(t *testing.T) {
	t.Run("dispatches on extension", func(t *testing.T) {
		path := writeTempCSV(t, "property_id,address\nP001,地址一\n")

		records, err := LoadRegistryFile(path)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("unsupported extension errors", func(t *testing.T) {
		_, err := LoadRegistryFile("registry.txt")
		assert.Error(t, err)
	})
}
