package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvRow(level, page, block, par, line, word, conf, text string) string {
	return strings.Join([]string{level, page, block, par, line, word, "0", "0", "10", "10", conf, text}, "\t")
}

func TestParseTSV_WordsAndLines(t *testing.T) {
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("1", "1", "0", "0", "0", "0", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "91.5", "Certificamos"),
		tsvRow("5", "1", "1", "1", "1", "2", "88.5", "que"),
		tsvRow("5", "1", "1", "1", "2", "1", "95.0", "Ana"),
		tsvRow("5", "1", "1", "1", "2", "2", "85.0", "Silva"),
	}, "\n")

	text, conf := parseTSV(tsv)
	assert.Equal(t, "Certificamos que\nAna Silva", text)
	assert.InDelta(t, 90.0, conf, 0.001)
}

func TestParseTSV_IgnoresNonPositiveConfidence(t *testing.T) {
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("5", "1", "1", "1", "1", "1", "-1", "ghost"),
		tsvRow("5", "1", "1", "1", "1", "2", "80", "real"),
	}, "\n")

	text, conf := parseTSV(tsv)
	assert.Equal(t, "ghost real", text)
	assert.InDelta(t, 80.0, conf, 0.001)
}

func TestParseTSV_SkipsEmptyWordsAndOtherLevels(t *testing.T) {
	tsv := strings.Join([]string{
		tsvHeader,
		tsvRow("4", "1", "1", "1", "1", "0", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "90", "  "),
		tsvRow("5", "1", "1", "1", "1", "2", "70", "palavra"),
	}, "\n")

	text, conf := parseTSV(tsv)
	assert.Equal(t, "palavra", text)
	assert.InDelta(t, 70.0, conf, 0.001)
}

func TestParseTSV_Empty(t *testing.T) {
	text, conf := parseTSV(tsvHeader + "\n")
	assert.Equal(t, "", text)
	assert.Equal(t, 0.0, conf)
}

func TestNewEngine_SplitsConfig(t *testing.T) {
	e := NewEngine("--oem 3 --psm 6 -l por+eng")
	assert.Equal(t, []string{"--oem", "3", "--psm", "6", "-l", "por+eng"}, e.args)
}
