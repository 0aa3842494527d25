//go:build debug
// +build debug

// Package debug provides assertions and debug-only logging that compile away
// unless the `debug` build tag is set.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package debug

import (
	"fmt"

	"github.com/golang/glog"
)

const Enabled = true

func Assert(cond bool) {
	if !cond {
		glog.Flush()
		panic("DEBUG PANIC: assertion failed")
	}
}

func AssertMsg(cond bool, msg string) {
	if !cond {
		glog.Flush()
		panic("DEBUG PANIC: " + msg)
	}
}

func Assertf(cond bool, format string, a ...interface{}) {
	AssertMsg(cond, fmt.Sprintf(format, a...))
}

func AssertNoErr(err error) {
	if err != nil {
		glog.Flush()
		panic(err)
	}
}

func Infof(format string, a ...interface{}) {
	glog.InfoDepth(1, fmt.Sprintf("[DEBUG] "+format, a...))
}
