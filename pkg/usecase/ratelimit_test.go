package usecase_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/talaria-bot/talaria/pkg/usecase"
)

func TestSenderLimiter_Burst(t *testing.T) {
	limiter := usecase.NewSenderLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		gt.Bool(t, limiter.Allow("15551234567")).True()
	}
	gt.Bool(t, limiter.Allow("15551234567")).False()
}

func TestSenderLimiter_SendersAreIndependent(t *testing.T) {
	limiter := usecase.NewSenderLimiter(1, time.Minute)

	gt.Bool(t, limiter.Allow("15551111111")).True()
	gt.Bool(t, limiter.Allow("15551111111")).False()

	// A different sender has its own budget
	gt.Bool(t, limiter.Allow("15552222222")).True()
}

func TestSenderLimiter_RefillsOverTime(t *testing.T) {
	limiter := usecase.NewSenderLimiter(1, 50*time.Millisecond)

	gt.Bool(t, limiter.Allow("15551234567")).True()
	gt.Bool(t, limiter.Allow("15551234567")).False()

	time.Sleep(100 * time.Millisecond)
	gt.Bool(t, limiter.Allow("15551234567")).True()
}
