// Package message sends, fetches and follows the messages of a resolved
// session.
//
// Send encrypts with the session secret and appends to the message log; a
// rejected append is reported as domain.ErrSubmissionFailed and is never
// retried here, since a resubmission could duplicate the message.
//
// Fetch rebuilds the whole conversation from the log on every call. Subscribe
// polls the log for new blocks and delivers entries in log order.
package message
