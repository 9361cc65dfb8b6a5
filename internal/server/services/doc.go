// Package services contains server-side business logic shared by every
// transport. Executor turns abstract CRUD requests into repository calls
// and maps their failures onto response statuses.
package services
