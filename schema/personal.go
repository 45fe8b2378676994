package schema

import "github.com/hazyhaar/ds160fill/record"

var (
	aliases            = group("DListAlias", "tbxSURNAME", "InsertButtonAlias")
	otherNationalities = group("dtlOTHER_NATL", "ddlOTHER_NATL", "InsertButtonOTHER_NATL")
	permResCountries   = group("dtlOthPermResCntry", "ddlOthPermResCntry", "InsertButtonOthPermResCntry")
)

func personalInfo1(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(
		text("surname", "tbxAPP_SURNAME").Max(33),
		text("givenName", "tbxAPP_GIVEN_NAME").Max(33),
	)
	b.naPair(
		text("fullNameNative", "tbxAPP_FULL_NAME_NATIVE").Max(100),
		"fullNameNative_na", checkbox("fullNameNative_na", "cbexAPP_FULL_NAME_NATIVE_NA"),
	)

	b.add(radio("hasOtherNames", "rblOtherNames"))
	if b.yes("hasOtherNames") {
		b.list("otherNames", aliases, func(i int, p string) []Instruction {
			return []Instruction{
				rowControl(KindText, aliases, i, p+"surname", "tbxSURNAME").Max(33),
				rowControl(KindText, aliases, i, p+"givenName", "tbxGIVEN_NAME").Max(33),
			}
		})
	}

	b.add(radio("hasTelecode", "rblTelecodeQuestion"))
	if b.yes("hasTelecode") {
		b.add(
			text("telecode.surname", "tbxAPP_TelecodeSURNAME").Max(20),
			text("telecode.givenName", "tbxAPP_TelecodeGIVEN_NAME").Max(20),
		)
	}

	b.add(
		choose("gender", "ddlAPP_GENDER"),
		choose("maritalStatus", "ddlAPP_MARITAL_STATUS"),
		choose("dob.day", "ddlDOBDay").With(TwoDigit),
		choose("dob.month", "ddlDOBMonth").With(MonthAbbrev),
		text("dob.year", "tbxDOBYear").Max(4),
		text("birthCity", "tbxAPP_POB_CITY").Max(20).With(Sanitize),
	)
	b.naPair(
		text("birthState", "tbxAPP_POB_ST_PROVINCE").Max(20).With(Sanitize),
		"birthState_na", checkbox("birthState_na", "cbexAPP_POB_ST_PROVINCE_NA"),
	)
	b.add(choose("birthCountry", "ddlAPP_POB_CNTRY"))

	return b.out
}

func personalInfo2(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(choose("nationality", "ddlAPP_NATL"))

	b.add(radio("hasOtherNationality", "rblAPP_OTH_NATL_IND"))
	if b.yes("hasOtherNationality") {
		b.list("otherNationalities", otherNationalities, func(i int, p string) []Instruction {
			ins := []Instruction{
				rowControl(KindSelect, otherNationalities, i, p+"country", "ddlOTHER_NATL"),
				rowRadio(otherNationalities, i, p+"hasPassport", "rblOTHER_PPT_IND"),
			}
			if b.yes(p + "hasPassport") {
				ins = append(ins, rowControl(KindText, otherNationalities, i, p+"passportNumber", "tbxOTHER_PPT_NUM").Max(20))
			}
			return ins
		})
	}

	b.add(radio("isPermResOtherCountry", "rblPermResOtherCntryInd"))
	if b.yes("isPermResOtherCountry") {
		b.list("permResCountries", permResCountries, func(i int, p string) []Instruction {
			return []Instruction{rowControl(KindSelect, permResCountries, i, p+"country", "ddlOthPermResCntry")}
		})
	}

	b.naPair(
		text("nationalIdNumber", "tbxAPP_NATIONAL_ID").Max(20),
		"nationalIdNumber_na", checkbox("nationalIdNumber_na", "cbexAPP_NATIONAL_ID_NA"),
	)

	if b.truthy("usSSN_na") {
		b.add(checkbox("usSSN_na", "cbexAPP_SSN_NA"))
	} else {
		b.add(
			text("usSSN.part1", "tbxAPP_SSN1").Max(3),
			text("usSSN.part2", "tbxAPP_SSN2").Max(2),
			text("usSSN.part3", "tbxAPP_SSN3").Max(4),
		)
	}

	b.naPair(
		text("usTaxId", "tbxAPP_TAX_ID").Max(20),
		"usTaxId_na", checkbox("usTaxId_na", "cbexAPP_TAX_ID_NA"),
	)

	return b.out
}
