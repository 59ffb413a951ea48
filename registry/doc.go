// Package registry maps logical dataset names to their location in object
// storage.
//
// A Dataset names a bucket, a key prefix and an approximate size. The
// prefix may be a single object key or a folder containing delimited
// objects; resolution to one object happens in the engine.
//
// MemoryRegistry serves tests and single-file setups. DynamoRegistry reads
// the catalog from a DynamoDB table:
//
//	aws dynamodb create-table \
//	  --table-name lakescan-datasets \
//	  --attribute-definitions AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package registry
