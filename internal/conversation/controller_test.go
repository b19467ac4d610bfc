package conversation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gratefultolord/insurance_bot/internal/models"
)

func confirmedRecord() models.UserRecord {
	return models.UserRecord{
		Passport:          &models.Passport{Surname: "DOE", GivenNames: []string{"John"}, BirthDate: "1990-05-14"},
		Vehicle:           &models.Vehicle{LicensePlate: "AA1234BB", VIN: "WVWZZZ1JZXW000001", Make: "Volkswagen", Model: "Golf"},
		PassportConfirmed: true,
		VehicleConfirmed:  true,
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{})
	require.Error(t, err)

	h := newHarness(t)
	_, err = New(Dependencies{
		Messenger:    h.messenger,
		Store:        h.store,
		Files:        h.files,
		Extractor:    h.extractor,
		Copywriter:   h.copy,
		PolicyWriter: h.writer,
		Renderer:     h.renderer,
	})
	require.ErrorContains(t, err, "price")
}

func TestStartCommand_SendsWelcomeKeyboard(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateConfirmVehicle})

	h.command(CommandStart)

	msg := h.messenger.last()
	require.Equal(t, "keyboard", msg.kind)
	require.Equal(t, testChat, msg.chatID)
	require.Equal(t, []string{StartButton}, msg.keyboard)
	require.Equal(t, "AI: "+promptWelcome.instruction, msg.text)
	require.Equal(t, agentPersona, h.copy.systems[0])
	require.Equal(t, models.StateConfirmVehicle, h.session().State)
}

func TestStartCommand_WelcomesReturningCustomer(t *testing.T) {
	h := newHarness(t)
	h.copy.err = errors.New("composer: no api key configured")
	h.ledger.prior = 2

	h.command(CommandStart)

	msg := h.messenger.last()
	require.Equal(t, "keyboard", msg.kind)
	require.Equal(t, welcomeBack(2).fallback, msg.text)
	require.Contains(t, msg.text, "2 policies")
}

func TestStartCommand_CountsDeliveredPolicy(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePolicyGeneration, Record: confirmedRecord()})
	h.text("go")
	require.Equal(t, models.StatePolicySent, h.session().State)

	h.command(CommandStart)
	require.Equal(t, "AI: "+welcomeBack(1).instruction, h.messenger.last().text)
}

func TestStartCommand_LedgerErrorFallsBackToWelcome(t *testing.T) {
	h := newHarness(t)
	h.ledger.prior = 3
	h.ledger.countErr = errors.New("db down")

	h.command(CommandStart)
	require.Equal(t, "AI: "+promptWelcome.instruction, h.messenger.last().text)
}

func TestStartCommand_WithoutLedger(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) { d.Ledger = nil })

	h.command(CommandStart)
	require.Equal(t, "AI: "+promptWelcome.instruction, h.messenger.last().text)
}

func TestStartButton_ResetsRecord(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePolicySent, Record: confirmedRecord()})

	h.text(StartButton)

	sess := h.session()
	require.Equal(t, models.StateAwaitingPassport, sess.State)
	require.True(t, sess.Record.Empty())
	require.False(t, sess.Record.PassportConfirmed)
	require.Equal(t, "AI: "+promptPassportRequest.instruction, h.messenger.last().text)
}

func TestPassportFlow_EndToEnd(t *testing.T) {
	h := newHarness(t)

	h.command(CommandStart)
	require.Equal(t, "keyboard", h.messenger.last().kind)

	h.text(StartButton)
	require.Equal(t, models.StateAwaitingPassport, h.session().State)

	h.messenger.reset()
	h.photo("passport-1")

	sess := h.session()
	require.Equal(t, models.StateConfirmPassport, sess.State)
	require.Equal(t, "DOE", sess.Record.Passport.Surname)
	require.False(t, sess.Record.PassportConfirmed)
	require.Equal(t, []string{"image:passport-1"}, h.extractor.images)

	msgs := h.messenger.messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "AI: "+promptPassportProcessing.instruction, msgs[0].text)
	require.Contains(t, msgs[1].text, "Name: John, Surname: DOE, Date of Birth: 1990-05-14")
	require.Equal(t, "buttons", msgs[2].kind)
	require.Equal(t, textConfirmDetails, msgs[2].text)
	require.Equal(t, []Button{
		{Text: buttonYes, Data: CallbackPassportYes},
		{Text: buttonNo, Data: CallbackPassportNo},
	}, msgs[2].buttons)

	h.press(CallbackPassportNo)
	sess = h.session()
	require.Equal(t, models.StateAwaitingPassport, sess.State)
	require.Nil(t, sess.Record.Passport)
	require.Equal(t, answered{id: "cb-" + CallbackPassportNo}, h.messenger.lastAnswer())
	edit := h.messenger.last()
	require.Equal(t, "edit", edit.kind)
	require.Equal(t, 77, edit.messageID)

	h.photo("passport-2")
	require.Equal(t, models.StateConfirmPassport, h.session().State)

	h.press(CallbackPassportYes)
	sess = h.session()
	require.Equal(t, models.StateAwaitingVehiclePlate, sess.State)
	require.True(t, sess.Record.PassportConfirmed)
	require.Equal(t, "AI: "+promptPassportConfirmed.instruction, h.messenger.last().text)
}

func TestPhotoOutsideAwaitingState_IsIgnored(t *testing.T) {
	for _, st := range []models.State{
		models.StateNone,
		models.StateConfirmPassport,
		models.StateConfirmVehicle,
		models.StatePriceConfirmation,
		models.StatePolicySent,
	} {
		t.Run(string(st), func(t *testing.T) {
			h := newHarness(t)
			rec := confirmedRecord()
			h.setSession(models.Session{State: st, Record: rec})

			h.photo("again")

			require.Zero(t, h.extractor.calls())
			require.Equal(t, st, h.session().State)
			require.Equal(t, rec, h.session().Record)
			require.Equal(t, textFollowOrder, h.messenger.last().text)
		})
	}
}

func TestPassportExtractionFailure_StaysAndReprompts(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateAwaitingPassport})
	h.extractor.passportErr = errors.New("mindee: unexpected status 500")

	h.photo("blurry")

	require.Equal(t, models.StateAwaitingPassport, h.session().State)
	require.Nil(t, h.session().Record.Passport)
	require.Equal(t, "AI: "+promptPassportRetry.instruction, h.messenger.last().text)
}

func TestDownloadFailure_StaysAndReprompts(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateAwaitingVehiclePlate})
	h.files.downloadErr = errors.New("telegram down")

	h.photo("plate")

	require.Zero(t, h.extractor.calls())
	require.Equal(t, models.StateAwaitingVehiclePlate, h.session().State)
	require.Equal(t, "AI: "+promptVehicleRetry.instruction, h.messenger.last().text)
}

func TestVehicleFlow_TwoStepCapture(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{
		State:  models.StateAwaitingVehiclePlate,
		Record: models.UserRecord{Passport: confirmedRecord().Passport, PassportConfirmed: true},
	})
	h.extractor.vehicles = []*models.Vehicle{
		{LicensePlate: "AA1234BB"},
		{VIN: "WVWZZZ1JZXW000001", Make: "Volkswagen"},
	}

	h.photo("plate")
	sess := h.session()
	require.Equal(t, models.StateAwaitingVehicleVIN, sess.State)
	require.Equal(t, "AA1234BB", sess.Record.Vehicle.LicensePlate)
	require.Equal(t, "AI: "+promptVINRequest.instruction, h.messenger.last().text)

	h.messenger.reset()
	h.photo("vin")
	sess = h.session()
	require.Equal(t, models.StateConfirmVehicle, sess.State)
	require.Equal(t, models.Vehicle{LicensePlate: "AA1234BB", VIN: "WVWZZZ1JZXW000001", Make: "Volkswagen"}, *sess.Record.Vehicle)

	msgs := h.messenger.messages()
	require.Len(t, msgs, 2)
	require.Contains(t, msgs[0].text, "VIN: WVWZZZ1JZXW000001, Make: Volkswagen, Model: -, License Plate: AA1234BB")
	require.Equal(t, CallbackVehicleYes, msgs[1].buttons[0].Data)
	require.Equal(t, CallbackVehicleNo, msgs[1].buttons[1].Data)

	h.press(CallbackVehicleNo)
	sess = h.session()
	require.Equal(t, models.StateAwaitingVehiclePlate, sess.State)
	require.Nil(t, sess.Record.Vehicle)
	require.NotNil(t, sess.Record.Passport)
	require.True(t, sess.Record.PassportConfirmed)

	h.extractor.vehicles = []*models.Vehicle{
		{LicensePlate: "AA1234BB"},
		{VIN: "WVWZZZ1JZXW000001", Make: "Volkswagen", Model: "Golf"},
	}
	h.photo("plate")
	h.photo("vin")
	require.Equal(t, models.StateConfirmVehicle, h.session().State)

	h.messenger.reset()
	h.press(CallbackVehicleYes)
	sess = h.session()
	require.Equal(t, models.StatePriceConfirmation, sess.State)
	require.True(t, sess.Record.VehicleConfirmed)
	require.True(t, sess.Record.PassportConfirmed)

	msgs = h.messenger.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "edit", msgs[0].kind)
	require.Equal(t, "buttons", msgs[1].kind)
	require.Contains(t, msgs[1].text, "$100")
	require.Equal(t, []Button{
		{Text: buttonYes, Data: CallbackPriceAgree},
		{Text: buttonNo, Data: CallbackPriceDisagree},
	}, msgs[1].buttons)
}

func TestVehiclePlateMissing_Stays(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateAwaitingVehiclePlate})
	h.extractor.vehicles = []*models.Vehicle{{VIN: "WVWZZZ1JZXW000001"}}

	h.photo("plate")

	require.Equal(t, models.StateAwaitingVehiclePlate, h.session().State)
	require.Nil(t, h.session().Record.Vehicle)
	require.Equal(t, "AI: "+promptVehicleRetry.instruction, h.messenger.last().text)
}

func TestVehicleVINMissing_Stays(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{
		State:  models.StateAwaitingVehicleVIN,
		Record: models.UserRecord{Vehicle: &models.Vehicle{LicensePlate: "AA1234BB"}},
	})
	h.extractor.vehicles = []*models.Vehicle{{Make: "Volkswagen"}}

	h.photo("vin")

	sess := h.session()
	require.Equal(t, models.StateAwaitingVehicleVIN, sess.State)
	require.Equal(t, models.Vehicle{LicensePlate: "AA1234BB"}, *sess.Record.Vehicle)
}

func TestCallbacks_UnknownRequestAndCommand(t *testing.T) {
	cases := []struct {
		name  string
		state models.State
		data  string
		want  string
	}{
		{"passport button outside confirmation", models.StateAwaitingPassport, CallbackPassportYes, textUnknownRequest},
		{"vehicle button outside confirmation", models.StateConfirmPassport, CallbackVehicleYes, textUnknownRequest},
		{"price button outside price step", models.StateConfirmVehicle, CallbackPriceAgree, textUnknownRequest},
		{"stray payload outside price step", models.StatePolicySent, "garbage", textUnknownRequest},
		{"unknown passport payload", models.StateConfirmPassport, "confirm_passport_maybe", textUnknownCommand},
		{"unknown vehicle payload", models.StateConfirmVehicle, "confirm_vehicle_maybe", textUnknownCommand},
		{"unknown payload at price step", models.StatePriceConfirmation, "garbage", textUnknownCommand},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			rec := confirmedRecord()
			h.setSession(models.Session{State: tc.state, Record: rec})

			h.press(tc.data)

			require.Equal(t, tc.want, h.messenger.lastAnswer().text)
			require.Equal(t, tc.state, h.session().State)
			require.Equal(t, rec, h.session().Record)
			require.Empty(t, h.messenger.messages())
		})
	}
}

func TestPriceDisagree_AsksAgain(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePriceConfirmation, Record: confirmedRecord()})

	h.press(CallbackPriceDisagree)

	require.Equal(t, models.StatePriceConfirmation, h.session().State)
	msgs := h.messenger.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "edit", msgs[0].kind)
	require.Contains(t, msgs[0].text, "$100 is fixed")
	require.Equal(t, "buttons", msgs[1].kind)
	require.Equal(t, CallbackPriceAgree, msgs[1].buttons[0].Data)
	require.Empty(t, h.renderer.texts)
}

func TestPriceAgree_DeliversPolicy(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePriceConfirmation, Record: confirmedRecord()})

	h.press(CallbackPriceAgree)

	require.Equal(t, models.StatePolicySent, h.session().State)

	texts := h.messenger.texts()
	require.Contains(t, texts, textGenerating)
	require.Equal(t, "AI: "+promptPolicyReady.instruction, h.messenger.last().text)

	var doc outbound
	for _, msg := range h.messenger.messages() {
		if msg.kind == "document" {
			doc = msg
		}
	}
	require.True(t, doc.fileFound, "policy file must exist when it is sent")
	require.Equal(t, []string{doc.path}, h.files.deleted)
	_, err := os.Stat(doc.path)
	require.True(t, os.IsNotExist(err))

	require.Len(t, h.writer.prompts, 1)
	require.Contains(t, h.writer.prompts[0], "**Full Name:** John DOE")
	require.Contains(t, h.writer.prompts[0], "POL-0001")
	require.Equal(t, []string{"AI: " + h.writer.prompts[0]}, h.renderer.texts)

	require.Len(t, h.ledger.policies, 1)
	issued := h.ledger.policies[0]
	require.Equal(t, "POL-0001", issued.Number)
	require.Equal(t, testUser, issued.UserID)
	require.Equal(t, 100, issued.PriceUSD)
	require.Equal(t, "AA1234BB", issued.Vehicle.LicensePlate)
	require.Equal(t, "DOE", issued.Passport.Surname)
}

func TestPolicyFailure_RetriesOnNextMessage(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePriceConfirmation, Record: confirmedRecord()})
	h.renderer.err = errors.New("disk full")

	h.press(CallbackPriceAgree)

	require.Equal(t, models.StatePolicyGeneration, h.session().State)
	require.Equal(t, textPolicyError, h.messenger.last().text)
	require.Len(t, h.files.deleted, 1)
	require.Empty(t, h.ledger.policies)

	h.renderer.err = nil
	h.text("hello?")

	require.Equal(t, models.StatePolicySent, h.session().State)
	require.Len(t, h.ledger.policies, 1)
}

func TestPolicySendFailure_DeletesFile(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateConfirmPurchase, Record: confirmedRecord()})
	h.messenger.documentErr = errors.New("telegram: file too big")

	h.text("ok")

	require.Equal(t, models.StateConfirmPurchase, h.session().State)
	require.Equal(t, textPolicyError, h.messenger.last().text)
	require.Len(t, h.files.deleted, 1)
	_, err := os.Stat(h.files.deleted[0])
	require.True(t, os.IsNotExist(err))
}

func TestPolicyWriterFailure(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePolicyGeneration, Record: confirmedRecord()})
	h.writer.err = errors.New("rate limited")

	h.photo("anything")

	require.Zero(t, h.extractor.calls())
	require.Equal(t, models.StatePolicyGeneration, h.session().State)
	require.Equal(t, textPolicyError, h.messenger.last().text)
	require.Empty(t, h.renderer.texts)
}

func TestPolicyWithoutData(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePolicyGeneration})

	h.text("where is my policy")

	require.Equal(t, models.StatePolicyGeneration, h.session().State)
	require.Equal(t, []string{textNoPolicyData}, h.messenger.texts())
	require.Empty(t, h.writer.prompts)
}

func TestLedgerFailure_DoesNotBlockDelivery(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePolicyGeneration, Record: confirmedRecord()})
	h.ledger.err = errors.New("db down")

	h.text("go")

	require.Equal(t, models.StatePolicySent, h.session().State)
}

func TestComposerFailure_UsesFallback(t *testing.T) {
	h := newHarness(t)
	h.copy.err = errors.New("composer: no api key configured")

	h.command(CommandStart)
	require.Equal(t, promptWelcome.fallback, h.messenger.last().text)

	h.text(StartButton)
	h.photo("passport")
	msgs := h.messenger.messages()
	require.Equal(t, "Please check your passport details:\nName: John\nSurname: DOE\nDate of Birth: 1990-05-14", msgs[len(msgs)-2].text)
}

func TestNonPhotoReminders(t *testing.T) {
	cases := map[models.State]prompt{
		models.StateAwaitingPassport:     promptRemindPassport,
		models.StateAwaitingVehiclePlate: promptRemindPlate,
		models.StateAwaitingVehicleVIN:   promptRemindVIN,
	}

	for st, want := range cases {
		t.Run(string(st), func(t *testing.T) {
			h := newHarness(t)
			h.setSession(models.Session{State: st})

			h.text("here you go")
			require.Equal(t, "AI: "+want.instruction, h.messenger.last().text)

			h.handle(Event{Kind: EventOther})
			require.Len(t, h.messenger.messages(), 2)
			require.Equal(t, st, h.session().State)
		})
	}
}

func TestTextOutsideFlow_IsIgnored(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StatePriceConfirmation, Record: confirmedRecord()})

	h.text("can I get a discount?")
	h.command("help")

	require.Empty(t, h.messenger.messages())
	require.Equal(t, models.StatePriceConfirmation, h.session().State)
}

func TestCancelledExtraction_LeavesStateSilently(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateAwaitingPassport})
	h.extractor.block = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.ctrl.Handle(ctx, Event{Kind: EventPhoto, UserID: testUser, ChatID: testChat, PhotoFileID: "p"})
		close(done)
	}()

	require.Eventually(t, func() bool { return h.extractor.calls() == 1 }, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, models.StateAwaitingPassport, h.session().State)
	require.Len(t, h.messenger.messages(), 1, "only the processing notice is sent")
}

func TestExtractionTimeout_Reprompts(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) { d.ExtractionTimeout = 10 * time.Millisecond })
	h.setSession(models.Session{State: models.StateAwaitingVehiclePlate})
	h.extractor.block = true

	h.photo("plate")

	require.Equal(t, models.StateAwaitingVehiclePlate, h.session().State)
	require.Equal(t, "AI: "+promptVehicleRetry.instruction, h.messenger.last().text)
}

func TestUsersAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.setSession(models.Session{State: models.StateAwaitingPassport})

	h.handle(Event{Kind: EventText, Text: StartButton, UserID: 5, ChatID: 6})

	require.Equal(t, models.StateAwaitingPassport, h.session().State)
	other, err := h.store.Get(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, models.StateAwaitingPassport, other.State)
	require.Equal(t, int64(6), h.messenger.last().chatID)
}

func TestEventPreempts(t *testing.T) {
	require.True(t, Event{Kind: EventCommand, Command: CommandStart}.Preempts())
	require.True(t, Event{Kind: EventText, Text: StartButton}.Preempts())
	require.False(t, Event{Kind: EventCommand, Command: "help"}.Preempts())
	require.False(t, Event{Kind: EventPhoto}.Preempts())
	require.False(t, Event{Kind: EventCallback, CallbackData: CallbackPriceAgree}.Preempts())
}
