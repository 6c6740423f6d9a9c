package pipeline

import "github.com/sells-group/contact-extractor/internal/model"

func frag(typ, text string) model.Fragment {
	return model.Fragment{Type: typ, Text: text}
}

// johnSmith is the fragment set of a document holding one valid contact.
func johnSmith() []model.Fragment {
	return []model.Fragment{
		frag("name", "John Smith"),
		frag("mobile", "0412345678"),
		frag("address", "123 Example Street NSW 2000"),
	}
}

// duplicatePair holds two contacts sharing a mobile; the second has an email.
func duplicatePair() []model.Fragment {
	return []model.Fragment{
		frag("name", "Jane Doe"),
		frag("name", "Janet Doe"),
		frag("mobile", "0498765432"),
		frag("mobile", "0498 765 432"),
		frag("address", "45 Sample Road Brisbane QLD 4000"),
		frag("address", "45 Sample Road Brisbane QLD 4000"),
		frag("email", "not-an-email"),
		frag("email", "janet@example.com"),
	}
}
