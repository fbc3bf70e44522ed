package models

// Job is an optional role a user registers as, e.g. a game job or a stage
// role. Which jobs are selectable depends on the event type.
type Job string

const (
	JobAllrounder  Job = "Allrounder"
	JobWarrior     Job = "Warrior"
	JobPaladin     Job = "Paladin"
	JobDarkKnight  Job = "Dark Knight"
	JobGunbreaker  Job = "Gunbreaker"
	JobWhiteMage   Job = "White Mage"
	JobScholar     Job = "Scholar"
	JobAstrologian Job = "Astrologian"
	JobSage        Job = "Sage"
	JobMonk        Job = "Monk"
	JobDragoon     Job = "Dragoon"
	JobNinja       Job = "Ninja"
	JobSamurai     Job = "Samurai"
	JobViper       Job = "Viper"
	JobReaper      Job = "Reaper"
	JobBard        Job = "Bard"
	JobMachinist   Job = "Machinist"
	JobDancer      Job = "Dancer"
	JobBlackMage   Job = "Black Mage"
	JobSummoner    Job = "Summoner"
	JobRedMage     Job = "Red Mage"
	JobPictomancer Job = "Pictomancer"
	JobBlueMage    Job = "Blue Mage"

	JobCrowd   Job = "Crowd"
	JobModel   Job = "Model"
	JobJudge   Job = "Judge"
	JobSpeaker Job = "Speaker"
)

// FF14Jobs lists the selectable jobs for Final Fantasy XIV events.
var FF14Jobs = []Job{
	JobAllrounder, JobWarrior, JobPaladin, JobDarkKnight, JobGunbreaker,
	JobWhiteMage, JobScholar, JobAstrologian, JobSage,
	JobMonk, JobDragoon, JobNinja, JobSamurai, JobViper, JobReaper,
	JobBard, JobMachinist, JobDancer,
	JobBlackMage, JobSummoner, JobRedMage, JobPictomancer, JobBlueMage,
}

// FashionShowJobs lists the selectable jobs for fashion show events.
var FashionShowJobs = []Job{JobCrowd, JobModel, JobJudge}

// CampfireJobs lists the selectable jobs for campfire events.
var CampfireJobs = []Job{JobCrowd, JobSpeaker}
