// lines.go centralises every scripted guidance line. Edit this file to
// change what the session says. Keep lines calm and unhurried; the voice
// engine handles inflection.

package guidance

func lineOpening() string {
	return "Welcome to your meditation. Find a comfortable position and close your eyes. " +
		"Take a deep breath in through your nose, exhale slowly through your mouth. " +
		"Feel your body settling into your seat. Now scan your body from head to toe, " +
		"noticing any sensations. Simply observe without judgment."
}

func lineBreathingStart() string {
	return "Now focus on your breath. Breathe in through your nose, out through your mouth. " +
		"Take ten breaths, then start again. If your mind wanders, gently return to your breath."
}

func lineReminder1() string {
	return "You're doing beautifully. Maintain focus on your breath. Feel the natural rhythm. " +
		"Each breath is a new beginning. If thoughts arise, observe them like clouds passing by. " +
		"Continue breathing mindfully."
}

func lineReminder2() string {
	return "Your breath is your anchor. Feel the peace of being present. Each inhale brings fresh energy, " +
		"each exhale releases what you no longer need. Continue with gentle awareness."
}

func lineReminder3() string {
	return "You're in a beautiful state of mindfulness. Notice how your body feels - lighter, more relaxed. " +
		"This is the gift of meditation. Stay with this awareness."
}

func lineReminder4() string {
	return "Your mind has grown quieter, your body more relaxed. This is the natural state of meditation. " +
		"Continue breathing mindfully."
}

func lineReminder5() string {
	return "You've created a beautiful space of mindfulness. Feel the peace you've cultivated. " +
		"This awareness is always available to you."
}

func lineClosing() string {
	return "As we end our meditation, finish your breath counting. Do one final body scan, noticing how you feel. " +
		"Gradually become aware of the sounds around you. When ready, slowly open your eyes, " +
		"bringing this mindful awareness with you. This peace is always within you. Thank you."
}
