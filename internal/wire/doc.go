// Package wire encodes entries, requests and responses in the protobuf wire
// format. The schema is fixed by the field numbers below and is what both
// network channels and the data namespace carry:
//
//	message ScalarList { repeated bytes values = 1; }
//	message ScalarPair { string key = 1; bytes value = 2; }
//	message ScalarMap  { repeated ScalarPair pairs = 1; }
//
//	message Entry {
//	  uint64 id = 1;
//	  google.protobuf.Timestamp created_at = 2;
//	  google.protobuf.Timestamp updated_at = 3;
//	  oneof payload {
//	    bytes blob = 4;
//	    ScalarList list = 5;
//	    ScalarMap map = 6;
//	  }
//	  map<string, string> metadata = 7;
//	}
//
//	message Request  { Operation op = 1; uint64 id = 2; Entry entry = 3; }
//	message Response { Status status = 1; string message = 2; Entry entry = 3; }
//
// Unknown fields are skipped on decode so older readers accept newer
// writers. An Entry with more than one payload variant populated is
// rejected with ErrPayloadMismatch.
package wire
