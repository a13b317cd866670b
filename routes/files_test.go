package routes

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcjars/registry/models"
)

func TestSplitChecksumsPath_StripsLastComponentOnly(t *testing.T) {
	path, ok := splitChecksumsPath("paper/1.20.1/123/server.jar.CHECKSUMS.txt")
	assert.True(t, ok)
	assert.Equal(t, "paper/1.20.1/123/server.jar", path)
}

func TestSplitChecksumsPath_IgnoresSuffixOnDirectorySegment(t *testing.T) {
	path, ok := splitChecksumsPath("paper.CHECKSUMS.txt/1.20.1/server.jar")
	assert.False(t, ok)
	assert.Equal(t, "paper.CHECKSUMS.txt/1.20.1/server.jar", path)
}

func TestSplitChecksumsPath_NoSuffix(t *testing.T) {
	path, ok := splitChecksumsPath("paper/1.20.1/123/server.jar")
	assert.False(t, ok)
	assert.Equal(t, "paper/1.20.1/123/server.jar", path)
}

func hexBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func TestFormatChecksums_EmitsAllSixAlgorithmsInOrder(t *testing.T) {
	f := &models.File{
		MD5:    hexBytes(strings.Repeat("a", 32)),
		SHA1:   hexBytes(strings.Repeat("b", 40)),
		SHA224: hexBytes(strings.Repeat("c", 56)),
		SHA256: hexBytes(strings.Repeat("d", 64)),
		SHA384: hexBytes(strings.Repeat("e", 96)),
		SHA512: hexBytes(strings.Repeat("f", 128)),
	}

	body := string(formatChecksums(f))
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	assert.Len(t, lines, 6)
	assert.Equal(t, "md5    "+strings.Repeat("a", 32), lines[0])
	assert.Equal(t, "sha1   "+strings.Repeat("b", 40), lines[1])
	assert.Equal(t, "sha224 "+strings.Repeat("c", 56), lines[2])
	assert.Equal(t, "sha256 "+strings.Repeat("d", 64), lines[3])
	assert.Equal(t, "sha384 "+strings.Repeat("e", 96), lines[4])
	assert.Equal(t, "sha512 "+strings.Repeat("f", 128), lines[5])
	assert.True(t, strings.HasSuffix(body, "\n"))
}

func TestDownloadContentType(t *testing.T) {
	assert.Equal(t, "application/java-archive", downloadContentType("paper-1.20.1-123.jar"))
	assert.Equal(t, "application/zip", downloadContentType("paper-1.20.1-123.zip"))
	assert.Equal(t, "application/zip", downloadContentType("server"))
}
