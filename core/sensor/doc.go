// Package sensor implements validated temperature and humidity acquisition.
//
// A Reader drives a Transducer (the physical sensing element or a stand-in
// for it). Every call to Read performs up to maxRetries attempts; an attempt
// fails when the transducer reports NaN or when a value lies outside the
// physically plausible range. Failed attempts other than the last block the
// calling goroutine for the retry delay. The first valid attempt ends the
// cycle. Readers are not safe for concurrent use; they are owned by the
// driving loop.
package sensor
