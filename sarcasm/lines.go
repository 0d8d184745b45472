package sarcasm

import "fmt"

func motivationLines(name string) []string {
	return []string{
		fmt.Sprintf("Cheer up, %s. Things could be worse. You could be me listening to you.", name),
		fmt.Sprintf("%s, believe in yourself. Someone has to, apparently.", name),
		fmt.Sprintf("Oh look, %s wants motivation. Adorable.", name),
		fmt.Sprintf("%s, you're doing great. No, really. I'm shocked too.", name),
	}
}

func answerLines(question string) []string {
	return []string{
		fmt.Sprintf("You asked: '%s'. And honestly? I wish you hadn’t.", question),
		"Great question. Truly. I’ll ignore it completely though.",
		fmt.Sprintf("'%s' — wow. Just wow. No notes. Still no answer for you.", question),
		"I would answer, but I’m on a strict diet of not caring.",
	}
}

var tipLines = []string{
	"Have you tried turning your expectations down?",
	"Maybe just… don’t?",
	"Do it the right way this time. Just for fun.",
	"Some people learn from mistakes. You just collect them.",
}

func roastLines(language string) []string {
	return []string{
		fmt.Sprintf("%s? Bold choice. Wrong, but bold.", language),
		fmt.Sprintf("I've seen better %s written by a cat walking across a keyboard.", language),
		fmt.Sprintf("Your %s code works. I assume by accident.", language),
		fmt.Sprintf("Ah, %s. The code is fine. The person who wrote it, less so.", language),
	}
}
