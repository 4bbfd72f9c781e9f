// Package submit provides wizard.SubmitHandler implementations that deliver
// the accumulated values of a multi-step form over HTTP or to an io.Writer.
package submit
