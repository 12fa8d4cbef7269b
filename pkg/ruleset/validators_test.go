package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCertNumber(t *testing.T) {
	assert.True(t, ValidCertNumber("京(2023)朝阳区不动产权第0012345号"))
	assert.True(t, ValidCertNumber("沪(2019)浦东新区不动产权第X-99号"))

	assert.False(t, ValidCertNumber("京(2023)朝阳区不动产权第0012345"))
	assert.False(t, ValidCertNumber("(2023)朝阳区不动产权第0012345号"))
	assert.False(t, ValidCertNumber("前缀京(2023)朝阳区不动产权第0012345号"))
}

func TestValidContractNumber(t *testing.T) {
	assert.True(t, ValidContractNumber("HT-2023-001"))
	assert.True(t, ValidContractNumber("AB12345"))

	assert.False(t, ValidContractNumber("HT1"))
	assert.False(t, ValidContractNumber("ht-2023-001"))
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2023年6月15日"))
	assert.True(t, ValidDate("2023年06月15日"))
	assert.True(t, ValidDate("2023-06-15"))
	assert.True(t, ValidDate("1999/1/2"))

	assert.False(t, ValidDate("2023年6月"))
	assert.False(t, ValidDate("23-06-15"))
	assert.False(t, ValidDate("签订于2023-06-15"))
}

func TestValidIDNumber(t *testing.T) {
	t.Run("valid 18 digit with checksum", func(t *testing.T) {
		assert.True(t, ValidIDNumber("11010519491231002X"))
	})

	t.Run("lowercase checksum char accepted", func(t *testing.T) {
		assert.True(t, ValidIDNumber("11010519491231002x"))
	})

	t.Run("bad checksum rejected", func(t *testing.T) {
		assert.False(t, ValidIDNumber("110105194912310021"))
	})

	t.Run("legacy 15 digit shape only", func(t *testing.T) {
		assert.True(t, ValidIDNumber("110105491231002"))
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		assert.False(t, ValidIDNumber("1234"))
		assert.False(t, ValidIDNumber("1101051949123100"))
	})
}

func TestValidArea(t *testing.T) {
	assert.True(t, ValidArea("90.25平方米"))
	assert.True(t, ValidArea("120平米"))
	assert.True(t, ValidArea("88.8㎡"))
	assert.True(t, ValidArea("45"))

	assert.False(t, ValidArea("0平方米"))
	assert.False(t, ValidArea("10000"))
	assert.False(t, ValidArea("面积不详"))
}
