// Package events carries task lifecycle notifications out of the request
// path.
//
// Services emit a TaskEvent after a use case commits. The Dispatcher queues
// it and a small pool of workers fans it out to the registered handlers,
// such as the audit LogHandler or the RabbitMQ publisher. Emitting never
// blocks a request: when the queue is full the event is dropped and a
// warning is logged.
package events
