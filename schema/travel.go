package schema

import "github.com/hazyhaar/ds160fill/record"

var (
	companions     = group("dlTravelCompanions", "tbxSurname", "InsertButtonPrincipalPOT")
	previousVisits = group("dtlPREV_US_VISIT", "tbxPREV_US_VISIT_LOS", "InsertButtonPREV_US_VISIT")
	driverLicenses = group("dtlUS_DRIVER_LICENSE", "tbxUS_DRIVER_LICENSE", "InsertButtonUS_DRIVER_LICENSE")
)

func travelInfo(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(
		choose("purposeOfTrip", "ddlPurposeOfTrip"),
		// The specific-purpose list is repopulated after the purpose changes.
		choose("purposeSpecify", "ddlOtherPurpose").Wait(),
	)

	b.add(radio("hasSpecificPlans", "rblSpecificTravel"))
	if b.yes("hasSpecificPlans") {
		b.add(
			choose("arrivalDate", "ddlARRIVAL_US_DTEDay").With(DatePart("day")),
			choose("arrivalDate", "ddlARRIVAL_US_DTEMonth").With(DatePart("month")),
			text("arrivalDate", "tbxARRIVAL_US_DTEYear").With(DatePart("year")),
			text("arrivalFlight", "tbxArriveFlight").Max(20),
			text("arrivalCity", "tbxArriveCity").Max(20).With(Sanitize),
			choose("departureDate", "ddlDEPARTURE_US_DTEDay").With(DatePart("day")),
			choose("departureDate", "ddlDEPARTURE_US_DTEMonth").With(DatePart("month")),
			text("departureDate", "tbxDEPARTURE_US_DTEYear").With(DatePart("year")),
			text("departureFlight", "tbxDepartFlight").Max(20),
			text("departureCity", "tbxDepartCity").Max(20).With(Sanitize),
		)
	} else {
		b.add(
			choose("intendedArrivalDate", "ddlTRAVEL_DTEDay").With(DatePart("day")),
			choose("intendedArrivalDate", "ddlTRAVEL_DTEMonth").With(DatePart("month")),
			text("intendedArrivalDate", "tbxTRAVEL_DTEYear").With(DatePart("year")),
			text("lengthOfStay.value", "tbxTRAVEL_LOS").Max(3),
			choose("lengthOfStay.unit", "ddlTRAVEL_LOS_CD"),
		)
	}

	b.add(
		text("usAddress.street1", "tbxStreetAddress1").Max(40).With(Sanitize),
		text("usAddress.street2", "tbxStreetAddress2").Max(40).With(Sanitize),
		text("usAddress.city", "tbxCity").Max(20).With(Sanitize),
		choose("usAddress.state", "ddlTravelState"),
		text("usAddress.zipCode", "tbxZIPCode").Max(10),
		choose("whoIsPaying", "ddlWhoIsPaying"),
	)

	return b.out
}

func travelCompanions(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(radio("hasCompanions", "rblTravelWithOthers"))
	if !b.yes("hasCompanions") {
		return b.out
	}

	b.add(radio("groupTravel", "rblTravelGroup"))
	if b.yes("groupTravel") {
		b.add(text("groupName", "tbxGROUP_NAME").Max(40).With(Sanitize))
		return b.out
	}

	b.list("companions", companions, func(i int, p string) []Instruction {
		return []Instruction{
			rowControl(KindText, companions, i, p+"surname", "tbxSurname").Max(33),
			rowControl(KindText, companions, i, p+"givenName", "tbxGivenName").Max(33),
			rowControl(KindSelect, companions, i, p+"relationship", "ddlTCRelationship"),
		}
	})
	return b.out
}

func previousTravel(d record.Data) []Instruction {
	b := newBuild(d)

	b.add(radio("hasBeenInUS", "rblPREV_US_TRAVEL_IND"))
	if b.yes("hasBeenInUS") {
		b.list("previousVisits", previousVisits, func(i int, p string) []Instruction {
			return []Instruction{
				rowControl(KindSelect, previousVisits, i, p+"arrivalDate", "ddlPREV_US_VISIT_DTEDay").With(DatePart("day")),
				rowControl(KindSelect, previousVisits, i, p+"arrivalDate", "ddlPREV_US_VISIT_DTEMonth").With(DatePart("month")),
				rowControl(KindText, previousVisits, i, p+"arrivalDate", "tbxPREV_US_VISIT_DTEYear").With(DatePart("year")),
				rowControl(KindText, previousVisits, i, p+"lengthOfStay.value", "tbxPREV_US_VISIT_LOS").Max(3),
				rowControl(KindSelect, previousVisits, i, p+"lengthOfStay.unit", "ddlPREV_US_VISIT_LOS_CD"),
			}
		})

		b.add(radio("hasUSDriverLicense", "rblPREV_US_DRIVER_LIC_IND"))
		if b.yes("hasUSDriverLicense") {
			b.list("driverLicenses", driverLicenses, func(i int, p string) []Instruction {
				var ins []Instruction
				if b.truthy(p + "number_na") {
					ins = append(ins, rowControl(KindCheckbox, driverLicenses, i, p+"number_na", "cbxUS_DRIVER_LICENSE_NA").With(BoolOrFalse))
				} else {
					ins = append(ins, rowControl(KindText, driverLicenses, i, p+"number", "tbxUS_DRIVER_LICENSE").Max(20))
				}
				return append(ins, rowControl(KindSelect, driverLicenses, i, p+"state", "ddlUS_DRIVER_LICENSE_STATE"))
			})
		}
	}

	b.add(radio("hadUSVisa", "rblPREV_VISA_IND"))
	if b.yes("hadUSVisa") {
		b.add(
			choose("lastVisaDate", "ddlPREV_VISA_ISSUED_DTEDay").With(DatePart("day")),
			choose("lastVisaDate", "ddlPREV_VISA_ISSUED_DTEMonth").With(DatePart("month")),
			text("lastVisaDate", "tbxPREV_VISA_ISSUED_DTEYear").With(DatePart("year")),
		)
		b.naPair(
			text("visaNumber", "tbxPREV_VISA_FOIL_NUMBER").Max(12),
			"visaNumber_na", checkbox("visaNumber_na", "cbxPREV_VISA_FOIL_NUMBER_NA"),
		)
		b.add(
			radio("sameVisaType", "rblPREV_VISA_SAME_TYPE_IND"),
			radio("tenPrinted", "rblPREV_VISA_TEN_PRINT_IND"),
			radio("visaLostOrStolen", "rblPREV_VISA_LOST_IND"),
			radio("visaCancelled", "rblPREV_VISA_CANCELLED_IND"),
		)
	}

	b.add(radio("visaRefused", "rblPREV_VISA_REFUSED_IND"))
	if b.yes("visaRefused") {
		b.add(text("visaRefusedExplanation", "tbxPREV_VISA_REFUSED_EXPL").Max(4000).With(Sanitize))
	}

	b.add(radio("immigrantPetition", "rblIV_PETITION_IND"))
	if b.yes("immigrantPetition") {
		b.add(text("immigrantPetitionExplanation", "tbxIV_PETITION_EXPL").Max(4000).With(Sanitize))
	}

	return b.out
}
