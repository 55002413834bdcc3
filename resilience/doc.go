// Package resilience limits concurrency per key so one caller cannot hold
// every long-lived slot of the service.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "streams", MaxPerKey: 4})
//	release, err := bh.Acquire(userID)
//	if err != nil {
//	    return err // ErrBulkheadFull
//	}
//	defer release()
package resilience
