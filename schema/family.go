package schema

import "github.com/hazyhaar/ds160fill/record"

var usRelatives = group("dlUSRelatives", "tbxUS_REL_SURNAME", "InsertButtonUSRelative")

func familyRelatives(d record.Data) []Instruction {
	b := newBuild(d)

	parent(b, "father", "FATHER", "Fathers")
	parent(b, "mother", "MOTHER", "Mothers")

	b.add(radio("hasImmediateRelativesInUS", "rblUS_IMMED_RELATIVE_IND"))
	if b.yes("hasImmediateRelativesInUS") {
		b.list("relatives", usRelatives, func(i int, p string) []Instruction {
			return []Instruction{
				rowControl(KindText, usRelatives, i, p+"surname", "tbxUS_REL_SURNAME").Max(33),
				rowControl(KindText, usRelatives, i, p+"givenName", "tbxUS_REL_GIVEN_NAME").Max(33),
				rowControl(KindSelect, usRelatives, i, p+"relationship", "ddlUS_REL_TYPE"),
				rowControl(KindSelect, usRelatives, i, p+"status", "ddlUS_REL_STATUS"),
			}
		})
	}
	b.add(radio("hasOtherRelativesInUS", "rblUS_OTHER_RELATIVE_IND"))

	return b.out
}

// parent emits one parent's block. key is the record prefix, ctrl the
// control infix for names and live-in-US controls, dob the infix the date
// controls use.
func parent(b *build, key, ctrl, dob string) {
	b.naPair(
		text(key+".surname", "tbx"+ctrl+"_SURNAME").Max(33),
		key+".surname_na", checkbox(key+".surname_na", "cbx"+ctrl+"_SURNAME_UNK_IND"),
	)
	b.naPair(
		text(key+".givenName", "tbx"+ctrl+"_GIVEN_NAME").Max(33),
		key+".givenName_na", checkbox(key+".givenName_na", "cbx"+ctrl+"_GIVEN_NAME_UNK_IND"),
	)
	if b.truthy(key + ".dob_na") {
		b.add(checkbox(key+".dob_na", "cbx"+ctrl+"_DOB_UNK_IND"))
	} else {
		b.add(
			choose(key+".dob", "ddl"+dob+"DOBDay").With(DatePart("day")),
			choose(key+".dob", "ddl"+dob+"DOBMonth").With(DatePart("month")),
			text(key+".dob", "tbx"+dob+"DOBYear").With(DatePart("year")),
		)
	}
	b.add(radio(key+".inUS", "rbl"+ctrl+"_LIVE_IN_US_IND"))
	if b.yes(key + ".inUS") {
		b.add(choose(key+".usStatus", "ddl"+ctrl+"_US_STATUS"))
	}
}
