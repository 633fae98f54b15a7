package citation

import (
	"testing"

	"hr-rag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	leave   = models.Citation{DocTitle: "سياسة الاجازات", Chunk: 2, Source: "hr/leave.pdf", Corpus: "hr"}
	payroll = models.Citation{DocTitle: "دليل الرواتب", Chunk: 0, Source: "jisr/payroll.docx", Corpus: "jisr"}
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantAnswer string
		want       []models.Citation
	}{
		{
			name:       "no block",
			text:       "  الاجابة فقط \n",
			wantAnswer: "الاجابة فقط",
			want:       []models.Citation{},
		},
		{
			name: "block across lines",
			text: "يحق للموظف ثلاثون يوما.\n\nالمراجع: سياسة الاجازات #2\n<citations>{\"items\":[\n" +
				`{"doc_title":"سياسة الاجازات","chunk":2,"source":"hr/leave.pdf","corpus":"hr"}` +
				"\n]}</citations>\n",
			wantAnswer: "يحق للموظف ثلاثون يوما.\n\nالمراجع: سياسة الاجازات #2",
			want:       []models.Citation{leave},
		},
		{
			name:       "malformed json",
			text:       "نص <citations>{items: oops}</citations>",
			wantAnswer: "نص",
			want:       []models.Citation{},
		},
		{
			name: "duplicates collapse",
			text: "a<citations>{\"items\":[" +
				`{"doc_title":"سياسة الاجازات","chunk":2,"source":"hr/leave.pdf","corpus":"hr"},` +
				`{"doc_title":"دليل الرواتب","chunk":0,"source":"jisr/payroll.docx","corpus":"jisr"},` +
				`{"doc_title":"سياسة الاجازات","chunk":2,"source":"hr/leave.pdf","corpus":"hr"}` +
				"]}</citations>",
			wantAnswer: "a",
			want:       []models.Citation{leave, payroll},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, got := Extract(tt.text)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupKeepsOrder(t *testing.T) {
	other := leave
	other.Chunk = 3
	got := Dedup([]models.Citation{leave, payroll, leave, other, payroll})
	assert.Equal(t, []models.Citation{leave, payroll, other}, got)
	assert.Empty(t, Dedup(nil))
}

func TestFormatIsExtractable(t *testing.T) {
	block := Format([]models.Citation{payroll})
	assert.Equal(t,
		`<citations>{"items":[{"doc_title":"دليل الرواتب","chunk":0,"source":"jisr/payroll.docx","corpus":"jisr"}]}</citations>`,
		block)

	answer, got := Extract("الجواب\n" + block)
	assert.Equal(t, "الجواب", answer)
	require.Len(t, got, 1)
	assert.Equal(t, payroll, got[0])

	assert.Equal(t, `<citations>{"items":[]}</citations>`, Format(nil))
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "a\n\nb", Strip("a<citations>{}</citations>\n\nb<citations>x</citations>"))
}
