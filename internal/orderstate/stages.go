package orderstate

type KitchenStage string

const (
	KitchenQueued    KitchenStage = "QUEUED"
	KitchenPreparing KitchenStage = "PREPARING"
	KitchenReady     KitchenStage = "READY"
	KitchenServed    KitchenStage = "SERVED"
)

type PaymentStage string

const (
	PaymentUnpaid PaymentStage = "UNPAID"
	PaymentPaid   PaymentStage = "PAID"
)

// Stages splits the stored status into independent kitchen and payment views.
// paymentConfirmed is the QRIS confirmation flag kept next to the status.
type Stages struct {
	Kitchen KitchenStage `json:"kitchen"`
	Payment PaymentStage `json:"payment"`
}

func StagesOf(s Status, paymentConfirmed bool) Stages {
	st := Stages{Payment: PaymentUnpaid}
	if paymentConfirmed {
		st.Payment = PaymentPaid
	}

	switch s {
	case Waiting:
		st.Kitchen = KitchenQueued
	case Preparing:
		st.Kitchen = KitchenPreparing
	case Ready:
		st.Kitchen = KitchenReady
	case WaitingPayment:
		st.Kitchen = KitchenServed
	case Paid:
		st.Kitchen = KitchenServed
		st.Payment = PaymentPaid
	}
	return st
}
