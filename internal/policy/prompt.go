package policy

import (
	"fmt"
	"strings"

	"github.com/gratefultolord/insurance_bot/internal/models"
)

const SystemPrompt = "You are an assistant that generates realistic insurance policies."

// Placeholders used when a field was not extracted.
const (
	defaultSurname      = "SURNAME"
	defaultGivenName    = "Name"
	defaultBirthDate    = "01.01.1990"
	defaultVIN          = "VIN1234567890XYZ"
	defaultLicensePlate = "ABC123"
	defaultMake         = "Toyota"
	defaultModel        = "Camry"
)

const promptTemplate = `You are a professional legal writer. Generate a clear, formal, and professional **Car Insurance Policy Document** using the information provided below. The document should resemble a real policy and include standard sections such as:

1. **Policy Summary**
2. **Policy Holder Details**
3. **Vehicle Information**
4. **Coverage Details** (you may use standard placeholders)
5. **Terms and Conditions** (brief, formal)
6. **Claims Process**
7. **Contact Information**

Use clear headings and maintain a professional tone throughout. Do not invent specific personal details beyond what is provided.

### Policy Holder Information:
- **Policy Number:** %s
- **Full Name:** %s
- **Date of Birth:** %s
- **License Plate Number:** %s
- **Vehicle Identification Number (VIN):** %s
- **Vehicle Make:** %s
- **Vehicle Model:** %s
- **Premium:** $%d

**Contact Information:**
+380679342672
support@insurancecompany.com
221B Baker Street, London

**[Whylek_insurance]**
*Safe travels with peace of mind.*
`

// BuildPrompt asks for a formal policy document for the holder and vehicle in rec.
func BuildPrompt(rec models.UserRecord, number string, priceUSD int) string {
	surname, given, birth := defaultSurname, defaultGivenName, defaultBirthDate
	if p := rec.Passport; p != nil {
		surname = or(p.Surname, surname)
		given = or(p.FirstName(), given)
		birth = or(p.BirthDate, birth)
	}

	vin, plate, brand, model := defaultVIN, defaultLicensePlate, defaultMake, defaultModel
	if v := rec.Vehicle; v != nil {
		vin = or(v.VIN, vin)
		plate = or(v.LicensePlate, plate)
		brand = or(v.Make, brand)
		model = or(v.Model, model)
	}

	return fmt.Sprintf(promptTemplate, number, given+" "+surname, birth, plate, vin, brand, model, priceUSD)
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
