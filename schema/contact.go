package schema

import (
	"strconv"

	"github.com/hazyhaar/ds160fill/record"
)

var (
	extraPhones  = group("dtlAddPhone", "tbxAddPhoneInfo", "InsertButtonAddPhone")
	extraEmails  = group("dtlAddEmail", "tbxAddEmailInfo", "InsertButtonAddEmail")
	socialMedia  = group("dtlSocial", "ddlSocialMedia", "InsertButtonSocial")
	extraSocials = group("dtlAddSocial", "tbxAddSocialPlatform", "InsertButtonAddSocial")
)

func addressAndPhone(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(
		text("homeAddress.street1", "tbxAPP_ADDR_LN1").Max(40).With(Sanitize),
		text("homeAddress.street2", "tbxAPP_ADDR_LN2").Max(40).With(Sanitize),
		text("homeAddress.city", "tbxAPP_ADDR_CITY").Max(20).With(Sanitize),
	)
	b.naPair(
		text("homeAddress.state", "tbxAPP_ADDR_STATE").Max(20).With(Sanitize),
		"homeAddress.state_na", checkbox("homeAddress.state_na", "cbexAPP_ADDR_STATE_NA"),
	)
	b.naPair(
		text("homeAddress.postalCode", "tbxAPP_ADDR_POSTAL_CD").Max(10),
		"homeAddress.postalCode_na", checkbox("homeAddress.postalCode_na", "cbexAPP_ADDR_POSTAL_CD_NA"),
	)
	b.add(choose("homeAddress.country", "ddlCountry"))

	b.add(radio("isMailingAddressSame", "rblMailingAddrSame"))
	if b.no("isMailingAddressSame") {
		b.add(
			text("mailingAddress.street1", "tbxMAILING_ADDR_LN1").Max(40).With(Sanitize),
			text("mailingAddress.street2", "tbxMAILING_ADDR_LN2").Max(40).With(Sanitize),
			text("mailingAddress.city", "tbxMAILING_ADDR_CITY").Max(20).With(Sanitize),
		)
		b.naPair(
			text("mailingAddress.state", "tbxMAILING_ADDR_STATE").Max(20).With(Sanitize),
			"mailingAddress.state_na", checkbox("mailingAddress.state_na", "cbexMAILING_ADDR_STATE_NA"),
		)
		b.naPair(
			text("mailingAddress.postalCode", "tbxMAILING_ADDR_POSTAL_CD").Max(10),
			"mailingAddress.postalCode_na", checkbox("mailingAddress.postalCode_na", "cbexMAILING_ADDR_POSTAL_CD_NA"),
		)
		b.add(choose("mailingAddress.country", "ddlMAILING_ADDR_CNTRY"))
	}

	b.add(text("primaryPhone", "tbxAPP_HOME_TEL").Max(15))
	b.naPair(
		text("secondaryPhone", "tbxAPP_MOBILE_TEL").Max(15),
		"secondaryPhone_na", checkbox("secondaryPhone_na", "cbexAPP_MOBILE_TEL_NA"),
	)
	b.naPair(
		text("workPhone", "tbxAPP_BUS_TEL").Max(15),
		"workPhone_na", checkbox("workPhone_na", "cbexAPP_BUS_TEL_NA"),
	)
	b.add(radio("hasOtherPhones", "rblAddPhone"))
	if b.yes("hasOtherPhones") {
		b.add(array("otherPhones", extraPhones, Columns("")))
	}

	b.add(text("emailAddress", "tbxAPP_EMAIL_ADDR").Max(50))
	b.add(radio("hasOtherEmails", "rblAddEmail"))
	if b.yes("hasOtherEmails") {
		b.add(array("otherEmails", extraEmails, Columns("")))
	}

	// Row 0 always carries a platform; "NONE" when the applicant has none.
	b.add(rowControl(KindSelect, socialMedia, 0, "socialMedia", "ddlSocialMedia").With(FirstOf("platform", "NONE")))
	items := record.List(d, "socialMedia")
	for i := range items {
		p := "socialMedia." + strconv.Itoa(i) + "."
		if i > 0 {
			b.add(
				expand(socialMedia, i, "socialMedia"),
				rowControl(KindSelect, socialMedia, i, p+"platform", "ddlSocialMedia"),
			)
		}
		b.add(rowControl(KindText, socialMedia, i, p+"identifier", "tbxSocialMediaIdent").Max(50))
	}

	b.add(radio("hasOtherSocialMedia", "rblAddSocial"))
	if b.yes("hasOtherSocialMedia") {
		b.list("otherSocialMedia", extraSocials, func(i int, p string) []Instruction {
			return []Instruction{
				rowControl(KindText, extraSocials, i, p+"platform", "tbxAddSocialPlatform").Max(50),
				rowControl(KindText, extraSocials, i, p+"identifier", "tbxAddSocialHandle").Max(50),
			}
		})
	}

	return b.out
}

func usContact(d record.Data) []Instruction {
	b := newBuild(d)

	if b.truthy("contactName_na") {
		b.add(checkbox("contactName_na", "cbxUS_POC_NAME_NA"))
	} else {
		b.add(
			text("contactSurname", "tbxUS_POC_SURNAME").Max(33),
			text("contactGivenName", "tbxUS_POC_GIVEN_NAME").Max(33),
		)
	}
	b.naPair(
		text("organization", "tbxUS_POC_ORGANIZATION").Max(33).With(Sanitize),
		"organization_na", checkbox("organization_na", "cbxUS_POC_ORG_NA_IND"),
	)
	b.add(
		choose("relationship", "ddlUS_POC_REL_TO_APP"),
		text("address.street1", "tbxUS_POC_ADDR_LN1").Max(40).With(Sanitize),
		text("address.street2", "tbxUS_POC_ADDR_LN2").Max(40).With(Sanitize),
		text("address.city", "tbxUS_POC_ADDR_CITY").Max(20).With(Sanitize),
		choose("address.state", "ddlUS_POC_ADDR_STATE"),
		text("address.zipCode", "tbxUS_POC_ADDR_POSTAL_CD").Max(10),
		text("phone", "tbxUS_POC_HOME_TEL").Max(15),
	)
	b.naPair(
		text("email", "tbxUS_POC_EMAIL_ADDR").Max(50),
		"email_na", checkbox("email_na", "cbexUS_POC_EMAIL_ADDR_NA"),
	)

	return b.out
}
