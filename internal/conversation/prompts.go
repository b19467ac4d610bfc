package conversation

import "fmt"

const (
	CommandStart = "start"
	StartButton  = "🚗 Start"

	CallbackPassportYes   = "confirm_passport_yes"
	CallbackPassportNo    = "confirm_passport_no"
	CallbackVehicleYes    = "confirm_vehicle_yes"
	CallbackVehicleNo     = "confirm_vehicle_no"
	CallbackPriceAgree    = "price_agree"
	CallbackPriceDisagree = "price_disagree"

	callbackPassportPrefix = "confirm_passport_"
	callbackVehiclePrefix  = "confirm_vehicle_"
)

// Literal texts, never generated.
const (
	textConfirmDetails = "Are the details correct?"
	textFollowOrder    = "Please follow the order: first send your passport, then vehicle documents."
	textUnknownRequest = "Unknown request."
	textUnknownCommand = "Unknown command."
	textGenerating     = "📄 Generating your insurance policy..."
	textNoPolicyData   = "⚠️ Error: No data to generate the policy."
	textPolicyError    = "❌ An error occurred while generating the policy."
	textTryAgain       = "Something went wrong on our side. Please try again."

	buttonYes = "✅ Yes"
	buttonNo  = "❌ No"
)

const agentPersona = `You are a friendly and professional insurance agent named 'Whylek_insurance'.
You help users complete their car insurance purchase process.
Always respond in English.`

// prompt is an instruction for the copywriter plus the text sent when generation fails.
type prompt struct {
	instruction string
	fallback    string
}

var (
	promptWelcome = prompt{
		instruction: "The user has started the bot. Welcome them and ask to send their passport photo to begin the insurance process.",
		fallback:    "Welcome to Whylek_insurance! I will help you buy car insurance in a few minutes. Press \"🚗 Start\" and send a photo of your passport to begin.",
	}
	promptPassportRequest = prompt{
		instruction: "Ask the user to send a photo of their passport to proceed with the car insurance application.",
		fallback:    "Please send a photo of your passport to proceed with the car insurance application.",
	}
	promptPassportProcessing = prompt{
		instruction: "The user has uploaded a passport photo. Please confirm that you are now processing the document.",
		fallback:    "Thank you! I am processing your passport now, this will take a moment.",
	}
	promptPassportRetry = prompt{
		instruction: "There was an issue reading the passport. Please upload a clearer image.",
		fallback:    "There was an issue reading the passport. Please upload a clearer image.",
	}
	promptPassportConfirmed = prompt{
		instruction: "The passport data has been confirmed. Please send a photo of your vehicle's license plate next.",
		fallback:    "Thank you, your passport data is confirmed. Please send a photo of your vehicle's license plate next.",
	}
	promptPassportReupload = prompt{
		instruction: "Please re-upload your passport photo.",
		fallback:    "No problem. Please re-upload your passport photo.",
	}
	promptVINRequest = prompt{
		instruction: "Please upload a photo with the VIN code and make of the vehicle.",
		fallback:    "Got it! Now please upload a photo with the VIN code and make of the vehicle.",
	}
	promptVehicleRetry = prompt{
		instruction: "There was an issue reading your vehicle document. Please upload a clearer image.",
		fallback:    "There was an issue reading your vehicle document. Please upload a clearer image.",
	}
	promptVehicleConfirmed = prompt{
		instruction: "The vehicle data has been confirmed. Proceeding to price confirmation.",
		fallback:    "Your vehicle data is confirmed. Let's move on to the price.",
	}
	promptVehicleReupload = prompt{
		instruction: "Please re-upload a photo of your vehicle's license plate.",
		fallback:    "No problem. Please re-upload a photo of your vehicle's license plate.",
	}
	promptPriceAgreed = prompt{
		instruction: "The user has agreed to the price. Generating the insurance policy now.",
		fallback:    "Great, thank you! I am generating your insurance policy now.",
	}
	promptPolicyReady = prompt{
		instruction: "Inform the user that the insurance policy is ready and they can review it in the attached file.",
		fallback:    "Your insurance policy is ready. You can review it in the attached file.",
	}
)

// reminders answer non-photo input in a state that waits for a document photo.
var (
	promptRemindPassport = prompt{
		instruction: "Please upload a clear photo of your passport.",
		fallback:    "Please upload a clear photo of your passport.",
	}
	promptRemindPlate = prompt{
		instruction: "Please upload a clear photo of the vehicle's license plate.",
		fallback:    "Please upload a clear photo of the vehicle's license plate.",
	}
	promptRemindVIN = prompt{
		instruction: "Please upload a clear photo with the vehicle's VIN code and make/model.",
		fallback:    "Please upload a clear photo with the vehicle's VIN code and make/model.",
	}
)

func passportSummary(name, surname, birthDate string) prompt {
	return prompt{
		instruction: fmt.Sprintf("Summarize and ask the user to confirm their passport details: Name: %s, Surname: %s, Date of Birth: %s", name, surname, birthDate),
		fallback:    fmt.Sprintf("Please check your passport details:\nName: %s\nSurname: %s\nDate of Birth: %s", name, surname, birthDate),
	}
}

func vehicleSummary(vin, brand, model, plate string) prompt {
	return prompt{
		instruction: fmt.Sprintf("Summarize and ask the user to confirm their vehicle details: VIN: %s, Make: %s, Model: %s, License Plate: %s", vin, brand, model, plate),
		fallback:    fmt.Sprintf("Please check your vehicle details:\nVIN: %s\nMake: %s\nModel: %s\nLicense Plate: %s", vin, brand, model, plate),
	}
}

func welcomeBack(policies int) prompt {
	noun := "policy"
	if policies > 1 {
		noun = "policies"
	}
	return prompt{
		instruction: fmt.Sprintf("A returning customer who already holds %d car insurance %s with us has started the bot. Welcome them back and ask to send their passport photo to insure another car.", policies, noun),
		fallback:    fmt.Sprintf("Welcome back to Whylek_insurance! You already hold %d %s with us. Press \"🚗 Start\" and send a photo of your passport to insure another car.", policies, noun),
	}
}

func priceQuestion(price int) prompt {
	return prompt{
		instruction: fmt.Sprintf("Inform the user about the fixed insurance price of $%d and ask if they agree to proceed.", price),
		fallback:    fmt.Sprintf("The insurance price is a fixed $%d. Do you agree to proceed?", price),
	}
}

func priceFixed(price int) prompt {
	return prompt{
		instruction: fmt.Sprintf("Unfortunately, the price of $%d is fixed and cannot be changed. Would you like to proceed with the purchase?", price),
		fallback:    fmt.Sprintf("Unfortunately, the price of $%d is fixed and cannot be changed.", price),
	}
}
