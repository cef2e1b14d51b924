// Package announce renders the spoken/display announcement text emitted
// alongside queue events. Templates are fixed at construction; there is no
// runtime mutation of the template set.
package announce

import "strings"

type Templates struct {
	Created     string
	Called      string
	Recalled    string
	Serving     string
	Completed   string
	Cancelled   string
	NoneWaiting string
}

func DefaultTemplates() Templates {
	return Templates{
		Created:     "Queue number {number} has been created",
		Called:      "Queue number {number}, please proceed to the counter",
		Recalled:    "Attention. Queue number {number}, please proceed to the counter immediately",
		Serving:     "Queue number {number} is now being served",
		Completed:   "Queue number {number} has been completed",
		Cancelled:   "Queue number {number} has been cancelled",
		NoneWaiting: "There is no queue waiting",
	}
}

type Announcer struct {
	templates Templates
}

func New(templates Templates) *Announcer {
	defaults := DefaultTemplates()
	if templates.Created == "" {
		templates.Created = defaults.Created
	}
	if templates.Called == "" {
		templates.Called = defaults.Called
	}
	if templates.Recalled == "" {
		templates.Recalled = defaults.Recalled
	}
	if templates.Serving == "" {
		templates.Serving = defaults.Serving
	}
	if templates.Completed == "" {
		templates.Completed = defaults.Completed
	}
	if templates.Cancelled == "" {
		templates.Cancelled = defaults.Cancelled
	}
	if templates.NoneWaiting == "" {
		templates.NoneWaiting = defaults.NoneWaiting
	}
	return &Announcer{templates: templates}
}

func (a *Announcer) Created(number string) string {
	return render(a.templates.Created, number)
}

func (a *Announcer) Called(number string) string {
	return render(a.templates.Called, number)
}

func (a *Announcer) Recalled(number string) string {
	return render(a.templates.Recalled, number)
}

func (a *Announcer) Serving(number string) string {
	return render(a.templates.Serving, number)
}

func (a *Announcer) Completed(number string) string {
	return render(a.templates.Completed, number)
}

func (a *Announcer) Cancelled(number string) string {
	return render(a.templates.Cancelled, number)
}

func (a *Announcer) NoneWaiting() string {
	return a.templates.NoneWaiting
}

// render speaks the prefix and digits separately ("R 001") so TTS engines
// read the number digit group as-is.
func render(template, number string) string {
	spoken := number
	if len(number) > 1 {
		spoken = number[:1] + " " + number[1:]
	}
	return strings.ReplaceAll(template, "{number}", spoken)
}
