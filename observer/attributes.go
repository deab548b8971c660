package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for pipeline phase spans and metrics.
var (
	AttrPhaseName   = attribute.Key("etl.phase")
	AttrTaskID      = attribute.Key("etl.task_id")
	AttrExportID    = attribute.Key("etl.export_id")

	AttrConversationCount = attribute.Key("etl.conversation_count")
	AttrMessageCount      = attribute.Key("etl.message_count")
	AttrAttachmentCount   = attribute.Key("etl.attachment_count")

	AttrBatchSize    = attribute.Key("etl.load.batch_size")
	AttrInsertKind   = attribute.Key("etl.load.insert_strategy")

	AttrMemoryUsageMB = attribute.Key("etl.memory.usage_mb")
	AttrMemoryLevel   = attribute.Key("etl.memory.level")
)
