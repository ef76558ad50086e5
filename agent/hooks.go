package agent

import (
	"context"

	"github.com/smallnest/agentapis/graph"
	"github.com/smallnest/agentapis/log"
)

// LoggingHook logs node transitions of the routing graph at debug level and node errors at error level.
func LoggingHook(logger log.Logger) graph.TraceHook {
	logger = log.OrNoop(logger)
	return graph.TraceHookFunc(func(_ context.Context, span *graph.TraceSpan) {
		switch span.Event {
		case graph.TraceEventGraphStart:
			logger.Debug("agent run started")
		case graph.TraceEventGraphEnd:
			if span.Error != nil {
				logger.Debug("agent run failed after %s: %v", span.Duration, span.Error)
				return
			}
			logger.Debug("agent run finished in %s", span.Duration)
		case graph.TraceEventNodeStart:
			logger.Debug("enter %s", span.NodeName)
		case graph.TraceEventNodeEnd:
			logger.Debug("leave %s (%s)", span.NodeName, span.Duration)
		case graph.TraceEventNodeError:
			logger.Error("node %s failed: %v", span.NodeName, span.Error)
		case graph.TraceEventEdgeTraversal:
			logger.Debug("%s -> %s", span.FromNode, span.ToNode)
		}
	})
}
