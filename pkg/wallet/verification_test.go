package wallet

import (
	"context"
	"errors"
	"testing"
)

const testCodeValue = "123456"

func TestIssueStartsBothWindows(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	remote.issueReceipt = IssueReceipt{DevCode: testCodeValue}
	handshake := mustHandshake(test, remote, clock)

	challenge, err := handshake.Issue(context.Background(), testEmailValue)
	if err != nil {
		test.Fatalf("issue: %v", err)
	}
	if challenge.ExpiresAtUnixUTC != 5000+VerificationTTLSeconds {
		test.Fatalf("unexpected expiry: %d", challenge.ExpiresAtUnixUTC)
	}
	if challenge.ResendAvailableAtUnixUTC != 5000+ResendCooldownSeconds {
		test.Fatalf("unexpected resend window: %d", challenge.ResendAvailableAtUnixUTC)
	}
	if challenge.DevCode != testCodeValue {
		test.Fatalf("expected dev code echo, got %q", challenge.DevCode)
	}
}

func TestIssueRejectsMalformedEmailLocally(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)

	if _, err := handshake.Issue(context.Background(), "not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		test.Fatalf("expected invalid email, got %v", err)
	}
	if remote.issueCalls != 0 {
		test.Fatalf("expected no network call, got %d", remote.issueCalls)
	}
}

func TestResendThrottledBeforeCooldown(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)
	issued, err := handshake.Issue(context.Background(), testEmailValue)
	if err != nil {
		test.Fatalf("issue: %v", err)
	}

	clock.Advance(ResendCooldownSeconds - 1)
	if _, err := handshake.Resend(context.Background(), testEmailValue); !errors.Is(err, ErrResendThrottled) {
		test.Fatalf("expected resend throttled, got %v", err)
	}
	status, active := handshake.Status()
	if !active {
		test.Fatalf("expected active challenge")
	}
	if status.SecondsRemaining != issued.ExpiresAtUnixUTC-clock.Now() {
		test.Fatalf("throttled resend must not reset the expiry countdown, remaining=%d", status.SecondsRemaining)
	}
	if remote.issueCalls != 1 {
		test.Fatalf("expected single issue call, got %d", remote.issueCalls)
	}
}

func TestResendAfterCooldownResetsBothTimers(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	clock.Advance(ResendCooldownSeconds)
	challenge, err := handshake.Resend(context.Background(), testEmailValue)
	if err != nil {
		test.Fatalf("resend: %v", err)
	}
	if challenge.ExpiresAtUnixUTC != clock.Now()+VerificationTTLSeconds {
		test.Fatalf("expected reset expiry, got %d", challenge.ExpiresAtUnixUTC)
	}
	if challenge.ResendAvailableAtUnixUTC != clock.Now()+ResendCooldownSeconds {
		test.Fatalf("expected reset cooldown, got %d", challenge.ResendAvailableAtUnixUTC)
	}
}

func TestResendAllowedAfterExpiry(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	clock.Advance(VerificationTTLSeconds + 1)
	if _, err := handshake.Resend(context.Background(), testEmailValue); err != nil {
		test.Fatalf("resend after expiry: %v", err)
	}
}

func TestResendWithoutChallengeFails(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	handshake := mustHandshake(test, newStubRemote(), clock)
	if _, err := handshake.Resend(context.Background(), testEmailValue); !errors.Is(err, ErrNoActiveChallenge) {
		test.Fatalf("expected no active challenge, got %v", err)
	}
}

func TestVerifyExpiredLocallyWithoutNetworkCall(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	clock.Advance(VerificationTTLSeconds + 1)
	_, err := handshake.Verify(context.Background(), testEmailValue, testCodeValue)
	if !errors.Is(err, ErrCodeExpired) {
		test.Fatalf("expected code expired, got %v", err)
	}
	if remote.verifyCalls != 0 {
		test.Fatalf("locally expired challenge must not reach the network, got %d calls", remote.verifyCalls)
	}
}

func TestVerifyRejectsMalformedCodeLocally(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name string
		code string
	}{
		{name: "short", code: "123"},
		{name: "letters", code: "12345a"},
		{name: "empty", code: ""},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			clock := newFakeClock(5000)
			remote := newStubRemote()
			handshake := mustHandshake(test, remote, clock)
			if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
				test.Fatalf("issue: %v", err)
			}
			if _, err := handshake.Verify(context.Background(), testEmailValue, testCase.code); !errors.Is(err, ErrInvalidCode) {
				test.Fatalf("expected invalid code, got %v", err)
			}
			if remote.verifyCalls != 0 {
				test.Fatalf("expected no network call, got %d", remote.verifyCalls)
			}
		})
	}
}

func TestVerifyAllowsUnlimitedRetriesWithinWindow(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	remote.verifyErr = ErrInvalidCode
	handshake := mustHandshake(test, remote, clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	for attempt := 0; attempt < 10; attempt++ {
		if _, err := handshake.Verify(context.Background(), testEmailValue, "999999"); !errors.Is(err, ErrInvalidCode) {
			test.Fatalf("attempt %d: expected invalid code, got %v", attempt, err)
		}
	}
	if remote.verifyCalls != 10 {
		test.Fatalf("expected 10 remote attempts, got %d", remote.verifyCalls)
	}

	remote.mu.Lock()
	remote.verifyErr = nil
	remote.mu.Unlock()
	if _, err := handshake.Verify(context.Background(), testEmailValue, testCodeValue); err != nil {
		test.Fatalf("verify after retries: %v", err)
	}
}

func TestVerifySuccessConsumesChallenge(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	remote := newStubRemote()
	handshake := mustHandshake(test, remote, clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	clock.Advance(120)
	marker, err := handshake.Verify(context.Background(), testEmailValue, testCodeValue)
	if err != nil {
		test.Fatalf("verify: %v", err)
	}
	if marker.Email != testEmailValue || marker.VerifiedAtUnixUTC != clock.Now() {
		test.Fatalf("unexpected marker: %+v", marker)
	}
	if _, active := handshake.Status(); active {
		test.Fatalf("expected challenge consumed")
	}
	if _, err := handshake.Verify(context.Background(), testEmailValue, testCodeValue); !errors.Is(err, ErrNoActiveChallenge) {
		test.Fatalf("expected no active challenge, got %v", err)
	}
}

func TestStatusCountdownDecreasesPerSecond(test *testing.T) {
	test.Parallel()
	clock := newFakeClock(5000)
	handshake := mustHandshake(test, newStubRemote(), clock)
	if _, err := handshake.Issue(context.Background(), testEmailValue); err != nil {
		test.Fatalf("issue: %v", err)
	}

	previous := VerificationTTLSeconds + 1
	for tick := 0; tick < 5; tick++ {
		status, active := handshake.Status()
		if !active {
			test.Fatalf("expected active challenge at tick %d", tick)
		}
		if status.SecondsRemaining >= previous {
			test.Fatalf("countdown must decrease, tick %d: %d then %d", tick, previous, status.SecondsRemaining)
		}
		previous = status.SecondsRemaining
		clock.Advance(1)
	}

	clock.Advance(VerificationTTLSeconds)
	status, active := handshake.Status()
	if !active || !status.Expired || status.SecondsRemaining != 0 {
		test.Fatalf("expected expired status, got %+v active=%v", status, active)
	}
}
