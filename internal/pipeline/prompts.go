package pipeline

import (
	"strings"
	"time"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

func writeVocabulary(b *strings.Builder, vocab domain.Vocabulary) {
	b.WriteString("Allowed values:\n")
	b.WriteString("- category: " + strings.Join(vocab.CategoryNames(), ", ") + "\n")
	b.WriteString("- payment_method: " + strings.Join(vocab.PaymentMethodNames(), ", ") + "\n\n")
}

func writeOutputRules(b *strings.Builder) {
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n\n")
}

// buildAddPrompt asks for every expense described in text.
func buildAddPrompt(text string, ref time.Time, vocab domain.Vocabulary) string {
	today := refDate(ref).String()

	var b strings.Builder
	b.WriteString("You extract expense records from a short note written by the user.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Find EVERY expense in the note; one object per expense.\n")
	b.WriteString("- Output a JSON array of objects with these fields:\n")
	b.WriteString("  - \"date\": string, \"YYYY-MM-DD\" (use " + today + " when the note gives no date)\n")
	b.WriteString("  - \"category\": string, one of the allowed categories\n")
	b.WriteString("  - \"name\": string, what was bought, as written by the user\n")
	b.WriteString("  - \"amount\": number, non-negative, no currency symbol\n")
	b.WriteString("  - \"payment_method\": string, one of the allowed payment methods\n\n")
	writeVocabulary(&b, vocab)
	b.WriteString("Today is " + today + ". Resolve words like \"today\" or \"yesterday\" against it.\n\n")
	b.WriteString("Example:\n")
	b.WriteString("[{\"date\": \"" + today + "\", \"category\": \"dinner\", \"name\": \"ramen\", \"amount\": 980, \"payment_method\": \"cash\"}]\n\n")
	writeOutputRules(&b)
	b.WriteString("Note: " + text + "\n")
	return b.String()
}

// buildUpdatePrompt asks for {search, update} pairs describing corrections
// to records that already exist.
func buildUpdatePrompt(text string, ref time.Time, vocab domain.Vocabulary) string {
	today := refDate(ref)

	var b strings.Builder
	b.WriteString("You turn a correction request into edits of existing expense records.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Output a JSON array; one object per edit with two objects:\n")
	b.WriteString("  - \"search\": the fields that identify the existing record(s)\n")
	b.WriteString("  - \"update\": only the fields that change, with their new values\n")
	b.WriteString("- Field names are: date, category, name, amount, payment_method.\n")
	b.WriteString("- Put in \"search\" only what the user said about the old record.\n\n")
	writeVocabulary(&b, vocab)
	b.WriteString("Today is " + today.String() + " and yesterday was " + today.AddDays(-1).String() + ".\n")
	b.WriteString("Dates must be \"YYYY-MM-DD\".\n\n")
	b.WriteString("Example (\"the ramen was paid by card\"):\n")
	b.WriteString("[{\"search\": {\"name\": \"ramen\"}, \"update\": {\"payment_method\": \"credit-card\"}}]\n\n")
	writeOutputRules(&b)
	b.WriteString("Request: " + text + "\n")
	return b.String()
}
