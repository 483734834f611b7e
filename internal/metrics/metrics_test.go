// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTxn(t *testing.T) {
	before := testutil.ToFloat64(DBTxnErrors.WithLabelValues("update"))
	RecordTxn("update", time.Millisecond, nil)
	RecordTxn("update", time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(DBTxnErrors.WithLabelValues("update")); got != before+1 {
		t.Errorf("errors = %v, want %v", got, before+1)
	}
}

func TestRecordJobRun(t *testing.T) {
	ok := testutil.ToFloat64(JobRuns.WithLabelValues("test-job", "success"))
	failed := testutil.ToFloat64(JobRuns.WithLabelValues("test-job", "failure"))
	items := testutil.ToFloat64(JobItemsProcessed.WithLabelValues("test-job"))

	RecordJobRun("test-job", time.Second, 3, nil)
	RecordJobRun("test-job", time.Second, 0, errors.New("x"))

	if got := testutil.ToFloat64(JobRuns.WithLabelValues("test-job", "success")); got != ok+1 {
		t.Errorf("success runs = %v", got)
	}
	if got := testutil.ToFloat64(JobRuns.WithLabelValues("test-job", "failure")); got != failed+1 {
		t.Errorf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(JobItemsProcessed.WithLabelValues("test-job")); got != items+3 {
		t.Errorf("items = %v", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
}

func TestRecordEventHandled(t *testing.T) {
	before := testutil.ToFloat64(EventsHandled.WithLabelValues("user.archived", "failure"))
	RecordEventHandled("user.archived", errors.New("down"))
	if got := testutil.ToFloat64(EventsHandled.WithLabelValues("user.archived", "failure")); got != before+1 {
		t.Errorf("failures = %v", got)
	}
}
