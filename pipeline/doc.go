// Package pipeline runs a three-stage streaming transform: a Source feeds a
// single-slot buffer, a resizable pool of workers applies a TransformFunc, and
// an unbounded buffer feeds a Sink.
//
// The single slot bounds memory regardless of source speed. Workers can be
// added or removed while the source is still producing. A removed worker drops
// the record it was holding. Once the source is exhausted the roster is frozen
// and every remaining record is processed.
//
// A run ends in one of three ways. On natural completion every record read is
// written. On interrupt (Interrupt, ctx cancellation or a subscribed OS signal)
// reading and computing stop immediately while already computed records are
// still written. On a stage failure the run unwinds as for an interrupt and
// reports the error. In every case Run returns a Report and logs one summary
// line.
//
//	p := pipeline.New(src, calc.Calculate, sink,
//	    pipeline.WithWorkers(4),
//	    pipeline.WithSignals(os.Interrupt, syscall.SIGTERM),
//	)
//	report := p.Run(ctx)
package pipeline
