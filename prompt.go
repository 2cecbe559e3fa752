package labeler

// DefaultTemplate is the instruction sent ahead of every comment unless the user edits it
const DefaultTemplate = "Classify the text into neutral, negative, or positive. " +
	"Just return a single word among neutral, negative, or positive."

// Compose appends the row text to the instruction template
func Compose(template, text string) string {
	return template + "\n" + "Text: " + text
}
