package mail

import "fmt"

func AppointmentBooked(patientName, doctorName, date, slotTime string) Message {
	return Message{
		Subject: "Appointment Request Received",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your appointment request with Dr. %s on <b>%s</b> at <b>%s</b> has been received and is awaiting confirmation.</p>",
			patientName, doctorName, date, slotTime),
	}
}

func AppointmentAccepted(patientName, doctorName, date, slotTime string) Message {
	return Message{
		Subject: "Appointment Confirmed",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Dr. %s has confirmed your appointment on <b>%s</b> at <b>%s</b>.</p>",
			patientName, doctorName, date, slotTime),
	}
}

func AppointmentCancelled(patientName, doctorName, date, slotTime, by string) Message {
	return Message{
		Subject: "Appointment Cancelled",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your appointment with Dr. %s on <b>%s</b> at <b>%s</b> was cancelled by the %s.</p>",
			patientName, doctorName, date, slotTime, by),
	}
}

func RemedySent(patientName, doctorName string) Message {
	return Message{
		Subject: "Your Prescription Is Ready",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Dr. %s has sent you a prescription. Open the app to view it.</p>",
			patientName, doctorName),
	}
}
