// Package cmn provides common low-level types and utilities shared by the module's packages
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import "fmt"

const assertMsg = "assertion failed"

// NOTE: Not to be used in the fast path - the condition is always evaluated.

func Assert(cond bool) {
	if !cond {
		panic(assertMsg)
	}
}

func AssertMsg(cond bool, msg string) {
	if !cond {
		panic(assertMsg + ": " + msg)
	}
}

func Assertf(cond bool, format string, a ...interface{}) {
	if !cond {
		AssertMsg(cond, fmt.Sprintf(format, a...))
	}
}

func AssertNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
