package store

import "fmt"

// Key families. Composite string keys keep related rows adjacent so
// prefix scans stay cheap.
//
//	org:<id>                          organization row
//	orgkey:<orgID>                    wrapped DEK, exactly 0 or 1 per org
//	member:<orgID>:<userID>           eligible-member directory entry
//	topic:<id>                        topic row
//	thread:<id>                       feedback thread row
//	threadidx:<topicID>:<threadID>    topic -> thread index
//	item:<threadID>:<submitterHash>   feedback item; key IS the uniqueness constraint
//	threadsub:<threadID>:<hash>       participation ledger entry
//	topicsub:<topicID>:<hash>         one-submission-per-topic index
//	suggestion:<orgID>:<id>           topic suggestion row
//	suggnorm:<orgID>:<normTitle>      normalized title -> suggestion id
//	sugglast:<orgID>:<hash>           last suggestion timestamp per submitter
//	whevent:<id>                      processed billing webhook event

func orgKey(id string) string       { return "org:" + id }
func orgKeyKey(orgID string) string { return "orgkey:" + orgID }

func memberKey(orgID, userID string) string {
	return fmt.Sprintf("member:%s:%s", orgID, userID)
}
func memberPrefix(orgID string) string { return "member:" + orgID + ":" }
func topicKey(id string) string     { return "topic:" + id }
func threadKey(id string) string    { return "thread:" + id }

func threadIdxKey(topicID, threadID string) string {
	return fmt.Sprintf("threadidx:%s:%s", topicID, threadID)
}
func threadIdxPrefix(topicID string) string { return "threadidx:" + topicID + ":" }

func itemKey(threadID, hash string) string {
	return fmt.Sprintf("item:%s:%s", threadID, hash)
}
func itemPrefix(threadID string) string { return "item:" + threadID + ":" }

func threadSubKey(threadID, hash string) string {
	return fmt.Sprintf("threadsub:%s:%s", threadID, hash)
}
func threadSubPrefix(threadID string) string { return "threadsub:" + threadID + ":" }

func topicSubKey(topicID, hash string) string {
	return fmt.Sprintf("topicsub:%s:%s", topicID, hash)
}

func suggestionKey(orgID, id string) string {
	return fmt.Sprintf("suggestion:%s:%s", orgID, id)
}
func suggestionPrefix(orgID string) string { return "suggestion:" + orgID + ":" }

func suggNormKey(orgID, norm string) string {
	return fmt.Sprintf("suggnorm:%s:%s", orgID, norm)
}

func suggLastKey(orgID, hash string) string {
	return fmt.Sprintf("sugglast:%s:%s", orgID, hash)
}

func webhookEventKey(id string) string { return "whevent:" + id }
