package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/soypat/icmpdiscard"
	"github.com/soypat/icmpdiscard/wlan"
)

// securityValue is a pflag.Value accepting any spelling understood by
// wlan.ParseSecurity.
type securityValue struct{ sec *wlan.Security }

var _ pflag.Value = securityValue{}

func (v securityValue) String() string {
	if v.sec == nil {
		return ""
	}
	return v.sec.String()
}

func (v securityValue) Set(s string) error {
	sec, err := wlan.ParseSecurity(s)
	if err != nil {
		return err
	}
	*v.sec = sec
	return nil
}

func (v securityValue) Type() string { return "security" }

type policyValue struct{ policy *icmpdiscard.FailurePolicy }

var _ pflag.Value = policyValue{}

func (v policyValue) String() string {
	if v.policy == nil {
		return ""
	}
	return v.policy.String()
}

func (v policyValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "return":
		*v.policy = icmpdiscard.ReturnOnFailure
	case "halt":
		*v.policy = icmpdiscard.HaltOnFailure
	default:
		return fmt.Errorf("unknown failure policy %q, want return or halt", s)
	}
	return nil
}

func (v policyValue) Type() string { return "policy" }

// levelValue accepts slog level names plus "trace".
type levelValue struct{ level *slog.Level }

var _ pflag.Value = levelValue{}

func (v levelValue) String() string {
	if v.level == nil {
		return ""
	}
	if *v.level == levelTrace {
		return "TRACE"
	}
	return v.level.String()
}

func (v levelValue) Set(s string) error {
	if strings.EqualFold(s, "trace") {
		*v.level = levelTrace
		return nil
	}
	return v.level.UnmarshalText([]byte(s))
}

func (v levelValue) Type() string { return "level" }
