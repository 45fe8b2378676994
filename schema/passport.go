package schema

import "github.com/hazyhaar/ds160fill/record"

var lostPassports = group("dtlLostPPT", "tbxLOST_PPT_NUM", "InsertButtonLostPPT")

func passportInfo(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(
		choose("passportType", "ddlPPT_TYPE"),
		text("passportNumber", "tbxPPT_NUM").Max(20),
	)
	b.naPair(
		text("bookNumber", "tbxPPT_BOOK_NUM").Max(20),
		"bookNumber_na", checkbox("bookNumber_na", "cbexPPT_BOOK_NUM_NA"),
	)
	b.add(
		choose("issuingCountry", "ddlPPT_ISSUED_CNTRY"),
		text("issuedCity", "tbxPPT_ISSUED_IN_CITY").Max(25).With(Sanitize),
		text("issuedState", "tbxPPT_ISSUED_IN_STATE").Max(25).With(Sanitize),
		choose("issuedCountry", "ddlPPT_ISSUED_IN_CNTRY"),
		choose("issueDate", "ddlPPT_ISSUED_DTEDay").With(DatePart("day")),
		choose("issueDate", "ddlPPT_ISSUED_DTEMonth").With(DatePart("month")),
		text("issueDate", "tbxPPT_ISSUEDYear").With(DatePart("year")),
	)
	if b.truthy("expirationDate_na") {
		b.add(checkbox("expirationDate_na", "cbxPPT_EXPIRE_NA"))
	} else {
		b.add(
			choose("expirationDate", "ddlPPT_EXPIRE_DTEDay").With(DatePart("day")),
			choose("expirationDate", "ddlPPT_EXPIRE_DTEMonth").With(DatePart("month")),
			text("expirationDate", "tbxPPT_EXPIREYear").With(DatePart("year")),
		)
	}

	b.add(radio("hasLostPassport", "rblLOST_PPT_IND"))
	if b.yes("hasLostPassport") {
		b.list("lostPassports", lostPassports, func(i int, p string) []Instruction {
			var ins []Instruction
			if b.truthy(p + "number_na") {
				ins = append(ins, rowControl(KindCheckbox, lostPassports, i, p+"number_na", "cbxLOST_PPT_NUM_UNKN_IND").With(BoolOrFalse))
			} else {
				ins = append(ins, rowControl(KindText, lostPassports, i, p+"number", "tbxLOST_PPT_NUM").Max(20))
			}
			return append(ins,
				rowControl(KindSelect, lostPassports, i, p+"country", "ddlLOST_PPT_NATL"),
				rowControl(KindText, lostPassports, i, p+"explanation", "tbxLOST_PPT_EXPL").Max(4000).With(Sanitize),
			)
		})
	}

	return b.out
}
