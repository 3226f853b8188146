// Package logging is the structured logger shared by the staticpatcher
// commands and packages.
//
// A Logger is a zap logger whose methods take a context.Context. Entries
// written with a context carrying an OTEL span get trace_id and span_id, and
// entries inside a planning run get run.id (see WithRunID). Output goes to
// stderr, since stdout carries plan and classification output, and optionally
// to an OTEL log provider through the otelzap bridge.
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.Debug(ctx, "record classified",
//	    zap.String("record.id", "Skyrim.esm:0x01A001"),
//	    zap.String("category", "PlayerHome"))
//
// # Levels
//
// TraceLevel sits below Debug and carries per-record detail such as cache
// hits. Classifiers log each first resolution at Debug; set
// STATICPATCHER_LOGGING_LEVEL=debug to see them.
//
// # Sampling
//
// Large dumps produce one Debug entry per record, so every level below Error
// is sampled per tick with its own budget (see SamplingConfig). Errors are
// never dropped. Turn sampling off when chasing a misclassification.
//
// # Testing
//
// NewTestLogger records everything down to TraceLevel without sampling:
//
//	tl := logging.NewTestLogger()
//	classifier.New[*record.Entry](h, classifier.WithLogger(tl.Logger))
//	tl.AssertField(t, "record classified", "category", "Mine")
package logging
