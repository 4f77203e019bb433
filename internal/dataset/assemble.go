package dataset

import (
	"strings"

	"Go2FlowText/internal/model"
)

// Task codes.
const (
	TaskEMD = "EMD" // encrypted malware detection
	TaskEAC = "EAC" // encrypted app classification
	TaskBND = "BND" // botnet detection
	TaskEVD = "EVD" // encrypted VPN detection
	TaskMDD = "MDD" // malicious DoH detection
	TaskTBD = "TBD" // Tor behavior detection
	TaskAPT = "APT" // APT detection

	// DefaultGranularity is the granularity tag of session-level records.
	DefaultGranularity = "session"
)

// Task describes the instruction put in front of every flow record.
type Task struct {
	Code   string `json:"code"`
	Phrase string `json:"phrase"`
	// template holds "{g}" where the granularity goes.
	template string
}

const preamble = "Given the following traffic data <{g}> that contains protocol fields, traffic features, and payloads. "

var tasks = map[string]Task{
	TaskEMD: {
		Code:   TaskEMD,
		Phrase: "ENCRYPTED MALWARE DETECTION TASK",
		template: "Given the following traffic data <{g}> that contains protocol fields, " +
			"traffic features, and payloads of the first five packets in a session and the session statistical features. " +
			"Please conduct the ENCRYPTED MALWARE DETECTION TASK to determine " +
			"which application category the encrypted beign or malicious traffic belongs to. The categories " +
			"include 'FTP, Gmail, SMB, Weibo, Cridex, Geodo, Htbot, Miuref, Neris, " +
			"Nsis-ay, Shifu, Tinba, Virut, Zeus'.",
	},
	TaskEAC: {
		Code:   TaskEAC,
		Phrase: "ENCRYPTED APP CLASSIFICATION TASK",
		template: preamble + "Please conduct the ENCRYPTED APP CLASSIFICATION TASK to determine " +
			"which APP category the encrypted traffic belongs to. ",
	},
	TaskBND: {
		Code:   TaskBND,
		Phrase: "BOTNET DETECTION TASK",
		template: preamble + "Please conduct the BOTNET DETECTION TASK to determine " +
			"which type of network the traffic belongs to. The categories " +
			"include 'IRC, Neris, RBot, Virut, normal'.",
	},
	TaskEVD: {
		Code:   TaskEVD,
		Phrase: "ENCRYPTED VPN DETECTION TASK",
		template: preamble + "Please conduct the ENCRYPTED VPN DETECTION TASK to determine " +
			"which behavior or application category the VPN encrypted traffic belongs to. The categories " +
			"include 'aim, bittorrent, email, facebook, ftps, hangout, icq, netflix, sftp, skype, spotify, " +
			"vimeo, voipbuster, youtube'.",
	},
	TaskMDD: {
		Code:     TaskMDD,
		Phrase:   "MALICIOUS DOH DETECTION TASK",
		template: "Below is a traffic {g}. Please conduct the malicious DoH detection task: ",
	},
	TaskTBD: {
		Code:   TaskTBD,
		Phrase: "TOR BEHAVIOR DETECTION TASK",
		template: preamble + "Please conduct the TOR BEHAVIOR DETECTION TASK to determine " +
			"which behavior or application category the traffic belongs to under the Tor network. " +
			"The categories include 'audio, browsing, chat, file, mail, p2p, video, voip'.",
	},
	TaskAPT: {
		Code:   TaskAPT,
		Phrase: "APT DETECTION TASK",
		template: preamble + "Please conduct the APT DETECTION TASK to determine " +
			"which behavior or application category the traffic belongs to under the APT attacks. " +
			"The categories include 'APT and normal'.",
	},
}

// TaskCodes lists the known task codes.
var TaskCodes = []string{TaskEMD, TaskEAC, TaskBND, TaskEVD, TaskMDD, TaskTBD, TaskAPT}

// LookupTask returns the task for code, falling back to encrypted app
// classification for unknown codes.
func LookupTask(code string) Task {
	if t, ok := tasks[strings.ToUpper(code)]; ok {
		return t
	}
	return tasks[TaskEAC]
}

// Instruction renders the instruction for granularity. It opens with the task
// phrase so every record names its task up front.
func (t Task) Instruction(granularity string) string {
	return t.Phrase + ". " + strings.ReplaceAll(t.template, "{g}", granularity)
}

// Input joins an instruction and a flow record. The separator holds a literal
// backslash followed by 'n', not a newline.
func Input(instruction, granularity, flowText string) string {
	return instruction + `\n<` + granularity + ">: " + flowText
}

// Assemble turns the flow records of one class into dataset rows.
func Assemble(flows []string, intLabel int, strLabel, taskCode, granularity string) []model.DatasetRow {
	if granularity == "" {
		granularity = DefaultGranularity
	}
	instruction := LookupTask(taskCode).Instruction(granularity)

	rows := make([]model.DatasetRow, len(flows))
	for i, flow := range flows {
		rows[i] = model.DatasetRow{
			Inputs:   Input(instruction, granularity, flow),
			Label:    intLabel,
			StrLabel: strLabel,
		}
	}
	return rows
}

// TaskForDataset maps well-known public dataset names to their task code.
func TaskForDataset(name string) string {
	switch strings.ToLower(name) {
	case "ustc-tfc-2016":
		return TaskEMD
	case "iscx-botnet":
		return TaskBND
	case "iscx-vpn-2016", "lfett-2021":
		return TaskEVD
	case "dohbrw-2020":
		return TaskMDD
	case "iscx-tor-2016":
		return TaskTBD
	case "dapt-2020":
		return TaskAPT
	default:
		return TaskEAC
	}
}
