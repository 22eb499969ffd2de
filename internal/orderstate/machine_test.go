package orderstate

import (
	"errors"
	"testing"
)

func TestInitial(t *testing.T) {
	if got := Initial(MethodCashier); got != WaitingPayment {
		t.Errorf("Initial(CASHIER) = %s, want WAITING_PAYMENT", got)
	}
	if got := Initial(MethodQRIS); got != Waiting {
		t.Errorf("Initial(QRIS) = %s, want WAITING", got)
	}
}

func TestTransitionTable(t *testing.T) {
	all := []Status{Waiting, Preparing, Ready, WaitingPayment, Paid}
	legal := map[[2]Status]map[Method]bool{
		{Waiting, Preparing}:   {MethodQRIS: true, MethodCashier: true},
		{Preparing, Ready}:     {MethodQRIS: true, MethodCashier: true},
		{Ready, Paid}:          {MethodQRIS: true},
		{WaitingPayment, Paid}: {MethodQRIS: true, MethodCashier: true},
	}

	for _, m := range []Method{MethodQRIS, MethodCashier} {
		for _, from := range all {
			for _, to := range all {
				want := legal[[2]Status{from, to}][m]
				got, err := Transition(from, to, m)
				if want {
					if err != nil || got != to {
						t.Errorf("%s -> %s (%s): expected success, got %s, %v", from, to, m, got, err)
					}
					continue
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("%s -> %s (%s): expected ErrInvalidTransition, got %v", from, to, m, err)
				}
				if got != from {
					t.Errorf("%s -> %s (%s): rejected transition changed status to %s", from, to, m, got)
				}
			}
		}
	}
}

func TestWaitingPaymentCannotGoToKitchen(t *testing.T) {
	if _, err := Transition(WaitingPayment, Preparing, MethodCashier); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
	if _, err := Transition(WaitingPayment, Paid, MethodCashier); err != nil {
		t.Errorf("WAITING_PAYMENT -> PAID failed: %v", err)
	}
}

func TestPaidIsTerminal(t *testing.T) {
	if !Terminal(Paid) {
		t.Error("PAID must be terminal")
	}
	for _, m := range []Method{MethodQRIS, MethodCashier} {
		if next := Next(Paid, m); len(next) != 0 {
			t.Errorf("Next(PAID, %s) = %v, want none", m, next)
		}
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		s    Status
		m    Method
		want []Status
	}{
		{Waiting, MethodQRIS, []Status{Preparing}},
		{Ready, MethodQRIS, []Status{Paid}},
		{Ready, MethodCashier, nil},
		{WaitingPayment, MethodCashier, []Status{Paid}},
	}

	for _, tt := range tests {
		got := Next(tt.s, tt.m)
		if len(got) != len(tt.want) {
			t.Errorf("Next(%s, %s) = %v, want %v", tt.s, tt.m, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Next(%s, %s) = %v, want %v", tt.s, tt.m, got, tt.want)
			}
		}
	}
}

func TestStagesOf(t *testing.T) {
	st := StagesOf(Preparing, true)
	if st.Kitchen != KitchenPreparing || st.Payment != PaymentPaid {
		t.Errorf("Unexpected stages: %+v", st)
	}

	st = StagesOf(WaitingPayment, false)
	if st.Kitchen != KitchenServed || st.Payment != PaymentUnpaid {
		t.Errorf("Unexpected stages: %+v", st)
	}

	st = StagesOf(Paid, false)
	if st.Payment != PaymentPaid {
		t.Errorf("PAID must always report payment PAID: %+v", st)
	}
}
