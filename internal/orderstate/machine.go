// Package orderstate defines order statuses and the transitions between them.
package orderstate

import (
	"errors"
	"fmt"
)

type Status string

const (
	Waiting        Status = "WAITING"
	Preparing      Status = "PREPARING"
	Ready          Status = "READY"
	WaitingPayment Status = "WAITING_PAYMENT"
	Paid           Status = "PAID"
)

type Method string

const (
	MethodQRIS    Method = "QRIS"
	MethodCashier Method = "CASHIER"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

func (s Status) Valid() bool {
	switch s {
	case Waiting, Preparing, Ready, WaitingPayment, Paid:
		return true
	}
	return false
}

func (m Method) Valid() bool {
	return m == MethodQRIS || m == MethodCashier
}

// Initial returns the status an order is created with.
func Initial(m Method) Status {
	if m == MethodCashier {
		return WaitingPayment
	}
	return Waiting
}

type edge struct {
	from, to Status
}

// Edges that require a specific payment method; the rest are method-agnostic.
var transitions = map[edge]Method{
	{Waiting, Preparing}:   "",
	{Preparing, Ready}:     "",
	{Ready, Paid}:          MethodQRIS,
	{WaitingPayment, Paid}: "",
}

// Allowed reports whether from -> to is legal for an order paid with m.
func Allowed(from, to Status, m Method) bool {
	need, ok := transitions[edge{from, to}]
	if !ok {
		return false
	}
	return need == "" || need == m
}

// Transition validates from -> to and returns to, or ErrInvalidTransition.
func Transition(from, to Status, m Method) (Status, error) {
	if !Allowed(from, to, m) {
		return from, fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, from, to, m)
	}
	return to, nil
}

// Next lists the statuses reachable from s in one step.
func Next(s Status, m Method) []Status {
	var out []Status
	for _, to := range []Status{Preparing, Ready, Paid} {
		if Allowed(s, to, m) {
			out = append(out, to)
		}
	}
	return out
}

func Terminal(s Status) bool {
	return s == Paid
}
